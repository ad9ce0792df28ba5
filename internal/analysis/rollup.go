package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/supportiq/backend/internal/storage/models"
)

// RollupStore is the persistence surface the rollup updater needs.
// FindRollup returns (nil, nil) when no bucket exists yet for the key.
type RollupStore interface {
	FindRollup(ctx context.Context, date, tenantID string) (*models.DailyRollup, error)
	SaveRollup(ctx context.Context, rollup *models.DailyRollup) error
}

// RollupUpdater maintains the per-day counter buckets. Every call updates
// two buckets with identical increments: the tenant bucket and the global
// bucket (empty tenant id).
type RollupUpdater struct {
	store RollupStore
}

func NewRollupUpdater(store RollupStore) *RollupUpdater {
	return &RollupUpdater{store: store}
}

// Update folds one analyzed call into both buckets for the UTC date of the
// call's start time. The global bucket is updated first; a failure there
// does not prevent the tenant bucket update.
func (u *RollupUpdater) Update(ctx context.Context, call *models.CallRecord, triage *TriageResult) error {
	date := call.StartedAt.UTC().Format("2006-01-02")

	var firstErr error
	for _, tenantID := range []string{"", call.TenantID} {
		if err := u.updateBucket(ctx, date, tenantID, call, triage); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (u *RollupUpdater) updateBucket(ctx context.Context, date, tenantID string, call *models.CallRecord, triage *TriageResult) error {
	rollup, err := u.store.FindRollup(ctx, date, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load rollup %s/%q: %w", date, tenantID, err)
	}

	if rollup == nil {
		rollup = &models.DailyRollup{
			ID:                uuid.New().String(),
			Date:              date,
			TenantID:          tenantID,
			CategoryBreakdown: make(map[string]int),
		}
	}
	if rollup.CategoryBreakdown == nil {
		rollup.CategoryBreakdown = make(map[string]int)
	}

	// Every call reaching the rollup stage counts as completed; the
	// pipeline never runs on in-progress or abandoned calls.
	rollup.TotalCalls++
	rollup.CompletedCalls++
	if triage.ResolutionStatus == ResolutionResolved {
		rollup.ResolvedCalls++
	}
	// Escalation here keys off the resolution outcome alone; the separate
	// was_escalated flag feeds the per-call snapshot, not this counter.
	if triage.ResolutionStatus == ResolutionEscalated {
		rollup.EscalatedCalls++
	}

	rollup.TotalDurationSeconds += call.DurationSeconds
	n := float64(rollup.TotalCalls)
	rollup.AvgDurationSeconds = float64(rollup.TotalDurationSeconds) / n
	rollup.ResolutionRate = float64(rollup.ResolvedCalls) / n * 100

	// Mixed-sentiment calls contribute to the average score but land in no
	// histogram bucket.
	switch triage.OverallSentiment {
	case SentimentPositive:
		rollup.PositiveCalls++
	case SentimentNegative:
		rollup.NegativeCalls++
	case SentimentNeutral:
		rollup.NeutralCalls++
	}
	rollup.AvgSentimentScore = (rollup.AvgSentimentScore*(n-1) + triage.SentimentScore) / n

	rollup.CategoryBreakdown[triage.PrimaryCategory]++

	if err := u.store.SaveRollup(ctx, rollup); err != nil {
		return fmt.Errorf("failed to save rollup %s/%q: %w", date, tenantID, err)
	}
	return nil
}
