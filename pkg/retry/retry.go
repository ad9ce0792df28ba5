// Package retry implements capped exponential backoff with jitter for calls
// to the completion provider. Every failure is treated as transient; callers
// bound total time through the context deadline.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	Logger         *zap.Logger
}

// Do runs op up to MaxAttempts times, sleeping between attempts with
// exponentially growing, jittered delays. The context is checked before each
// attempt and while sleeping, so a caller's deadline cuts the loop short.
func Do(ctx context.Context, cfg Config, op func() error) error {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.Info("Attempt succeeded after retry",
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		if attempt == cfg.MaxAttempts {
			return lastErr
		}

		if cfg.Logger != nil {
			cfg.Logger.Warn("Attempt failed, backing off",
				zap.Error(lastErr),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.MaxAttempts),
				zap.Duration("delay", delay),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered(delay, cfg.JitterFraction)):
		}

		delay = time.Duration(math.Min(float64(cfg.MaxDelay), float64(delay)*cfg.Multiplier))
	}
}

// jittered spreads a delay by up to ±fraction so concurrent pipelines do not
// hammer the provider in lockstep after a shared outage.
func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	spread := time.Duration(rand.Float64() * float64(d) * fraction)
	if rand.Intn(2) == 0 {
		return d - spread
	}
	return d + spread
}
