package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/supportiq/backend/internal/storage/models"
)

// Feedback types fed into the aggregates.
const (
	FeedbackPainPoint      = "pain_point"
	FeedbackFeatureRequest = "feature_request"
	FeedbackComplaint      = "complaint"
	FeedbackCompliment     = "compliment"
	FeedbackKnowledgeGap   = "knowledge_gap"
)

// minFeedbackChars is the shortest feedback text worth counting.
const minFeedbackChars = 3

// FeedbackStore is the persistence surface the feedback aggregator needs.
// FindFeedback returns (nil, nil) when no aggregate matches the key.
type FeedbackStore interface {
	FindFeedback(ctx context.Context, tenantID, feedbackType, text string) (*models.FeedbackAggregate, error)
	SaveFeedback(ctx context.Context, fb *models.FeedbackAggregate) error
}

// FeedbackAggregator folds per-call feedback items into tenant-wide counters
// keyed by (type, text).
type FeedbackAggregator struct {
	store FeedbackStore
}

func NewFeedbackAggregator(store FeedbackStore) *FeedbackAggregator {
	return &FeedbackAggregator{store: store}
}

// Aggregate upserts every feedback item the deep extraction produced.
// It returns the number of items recorded. A failure on one item does not
// stop the rest; the first error is returned after all items are attempted.
func (a *FeedbackAggregator) Aggregate(ctx context.Context, call *models.CallRecord, triage *TriageResult, deep *DeepResult, now time.Time) (int, error) {
	fb := deep.CustomerProfile.Feedback

	items := []struct {
		feedbackType string
		texts        []string
	}{
		{FeedbackPainPoint, fb.PainPoints},
		{FeedbackFeatureRequest, fb.FeatureRequests},
		{FeedbackComplaint, fb.Complaints},
		{FeedbackCompliment, fb.Compliments},
		{FeedbackKnowledgeGap, deep.KnowledgeGaps},
	}

	count := 0
	var firstErr error
	for _, group := range items {
		for _, text := range group.texts {
			text = strings.TrimSpace(text)
			if len(text) < minFeedbackChars {
				continue
			}
			if err := a.upsert(ctx, call, group.feedbackType, text, triage.PrimaryCategory, now); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			count++
		}
	}

	return count, firstErr
}

func (a *FeedbackAggregator) upsert(ctx context.Context, call *models.CallRecord, feedbackType, text, category string, now time.Time) error {
	existing, err := a.store.FindFeedback(ctx, call.TenantID, feedbackType, text)
	if err != nil {
		return fmt.Errorf("failed to look up feedback: %w", err)
	}

	if existing == nil {
		return a.store.SaveFeedback(ctx, &models.FeedbackAggregate{
			ID:               uuid.New().String(),
			TenantID:         call.TenantID,
			FeedbackType:     feedbackType,
			FeedbackText:     text,
			Category:         category,
			OccurrenceCount:  1,
			FirstMentionedAt: now,
			LastMentionedAt:  now,
			CallIDs:          []string{call.ID},
		})
	}

	existing.OccurrenceCount++
	existing.LastMentionedAt = now
	if !containsString(existing.CallIDs, call.ID) {
		existing.CallIDs = append(existing.CallIDs, call.ID)
	}
	return a.store.SaveFeedback(ctx, existing)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
