// Package circuitbreaker guards the completion provider with a three-state
// breaker so a provider outage fails extraction requests fast instead of
// tying up pipeline goroutines in retry loops.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many trial requests in half-open state")
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	// MaxRequests bounds how many trial requests may pass while half-open.
	MaxRequests uint32
	// Interval resets the closed-state failure streak; zero disables the
	// reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open before admitting trial
	// requests again.
	Timeout time.Duration
	// FailureThreshold consecutive failures trip the breaker.
	FailureThreshold uint32
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold uint32
	Logger           *zap.Logger
}

type CircuitBreaker struct {
	name   string
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	requests   uint32
	successes  uint32
	failures   uint32
	expiry     time.Time
}

func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 2
	}

	cb := &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: cfg.Logger,
	}
	cb.newGeneration(time.Now())
	return cb
}

// Execute runs fn under the breaker. While open it fails immediately with
// ErrCircuitOpen; half-open admits up to MaxRequests trial calls. A panic in
// fn counts as a failure before propagating.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.afterRequest(generation, false)
			panic(r)
		}
	}()

	err = fn()
	cb.afterRequest(generation, err == nil)
	return err
}

// State reports the breaker's current state, advancing open → half-open when
// the timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, _ := cb.currentState(time.Now())
	return state
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, generation := cb.currentState(time.Now())

	if state == StateOpen {
		return generation, ErrCircuitOpen
	}
	if state == StateHalfOpen && cb.requests >= cb.cfg.MaxRequests {
		return generation, ErrTooManyRequests
	}

	cb.requests++
	return generation, nil
}

func (cb *CircuitBreaker) afterRequest(before uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, generation := cb.currentState(now)
	if generation != before {
		// The outcome belongs to a request admitted before the last state
		// change; its counts are stale.
		return
	}

	if success {
		cb.failures = 0
		cb.successes++
		if state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
			cb.setState(StateClosed, now)
		}
		return
	}

	cb.successes = 0
	cb.failures++
	if state == StateHalfOpen || (state == StateClosed && cb.failures >= cb.cfg.FailureThreshold) {
		cb.setState(StateOpen, now)
	}
}

func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.newGeneration(now)
		}
	case StateOpen:
		if cb.expiry.Before(now) {
			cb.setState(StateHalfOpen, now)
		}
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	failures := cb.failures
	cb.newGeneration(now)

	if cb.logger != nil {
		cb.logger.Info("Completion breaker state changed",
			zap.String("name", cb.name),
			zap.String("from", prev.String()),
			zap.String("to", state.String()),
			zap.Uint32("consecutive_failures", failures),
		)
	}
}

func (cb *CircuitBreaker) newGeneration(now time.Time) {
	cb.generation++
	cb.requests = 0
	cb.successes = 0
	cb.failures = 0

	switch cb.state {
	case StateClosed:
		if cb.cfg.Interval == 0 {
			cb.expiry = time.Time{}
		} else {
			cb.expiry = now.Add(cb.cfg.Interval)
		}
	case StateOpen:
		cb.expiry = now.Add(cb.cfg.Timeout)
	default:
		cb.expiry = time.Time{}
	}
}
