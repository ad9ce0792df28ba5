package analysis

import (
	"context"
	"testing"
	"time"
)

func feedbackDeep(painPoints, featureRequests, knowledgeGaps []string) *DeepResult {
	return &DeepResult{
		KnowledgeGaps: knowledgeGaps,
		CustomerProfile: ExtractedProfile{
			Feedback: CustomerFeedback{
				PainPoints:      painPoints,
				FeatureRequests: featureRequests,
			},
		},
	}
}

func TestFeedbackAggregateDedup(t *testing.T) {
	store := newMemStore()
	agg := NewFeedbackAggregator(store)
	triage := &TriageResult{PrimaryCategory: "billing"}
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	count, err := agg.Aggregate(context.Background(), testCall("call-1", t1, 60), triage,
		feedbackDeep([]string{"confusing pricing page"}, nil, nil), t1)
	if err != nil {
		t.Fatalf("first Aggregate() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	count, err = agg.Aggregate(context.Background(), testCall("call-2", t2, 60), triage,
		feedbackDeep([]string{"  confusing pricing page  "}, nil, nil), t2)
	if err != nil {
		t.Fatalf("second Aggregate() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	if len(store.feedback) != 1 {
		t.Fatalf("stored aggregates = %d, want 1", len(store.feedback))
	}
	fb := store.feedback[0]
	if fb.OccurrenceCount != 2 {
		t.Errorf("OccurrenceCount = %d, want 2", fb.OccurrenceCount)
	}
	if len(fb.CallIDs) != 2 || fb.CallIDs[0] != "call-1" || fb.CallIDs[1] != "call-2" {
		t.Errorf("CallIDs = %v, want both calls", fb.CallIDs)
	}
	if !fb.FirstMentionedAt.Equal(t1) || !fb.LastMentionedAt.Equal(t2) {
		t.Errorf("mention window = %v..%v", fb.FirstMentionedAt, fb.LastMentionedAt)
	}
}

func TestFeedbackAggregateTypes(t *testing.T) {
	store := newMemStore()
	agg := NewFeedbackAggregator(store)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	deep := feedbackDeep(
		[]string{"slow exports"},
		[]string{"dark mode"},
		[]string{"agent unsure about proration rules"},
	)
	deep.CustomerProfile.Feedback.Complaints = []string{"hold time too long"}
	deep.CustomerProfile.Feedback.Compliments = []string{"agent was patient"}

	count, err := agg.Aggregate(context.Background(), testCall("call-1", now, 60),
		&TriageResult{PrimaryCategory: "technical_support"}, deep, now)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}

	byType := make(map[string]int)
	for _, fb := range store.feedback {
		byType[fb.FeedbackType]++
		if fb.Category != "technical_support" {
			t.Errorf("Category = %q, want triage primary category", fb.Category)
		}
	}
	for _, ft := range []string{FeedbackPainPoint, FeedbackFeatureRequest, FeedbackComplaint, FeedbackCompliment, FeedbackKnowledgeGap} {
		if byType[ft] != 1 {
			t.Errorf("type %q count = %d, want 1", ft, byType[ft])
		}
	}
}

func TestFeedbackAggregateSkipsShortText(t *testing.T) {
	store := newMemStore()
	agg := NewFeedbackAggregator(store)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	count, err := agg.Aggregate(context.Background(), testCall("call-1", now, 60),
		&TriageResult{PrimaryCategory: "billing"},
		feedbackDeep([]string{"ok", "  ", "a real pain point"}, nil, nil), now)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want only the real pain point", count)
	}
	if len(store.feedback) != 1 {
		t.Errorf("stored aggregates = %d, want 1", len(store.feedback))
	}
}

func TestFeedbackSameCallCountedOnce(t *testing.T) {
	store := newMemStore()
	agg := NewFeedbackAggregator(store)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	call := testCall("call-1", now, 60)
	triage := &TriageResult{PrimaryCategory: "billing"}

	// Same text mentioned twice within one call's extraction.
	deep := feedbackDeep([]string{"confusing pricing page"}, nil, nil)
	if _, err := agg.Aggregate(context.Background(), call, triage, deep, now); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if _, err := agg.Aggregate(context.Background(), call, triage, deep, now); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	fb := store.feedback[0]
	if fb.OccurrenceCount != 2 {
		t.Errorf("OccurrenceCount = %d, want 2", fb.OccurrenceCount)
	}
	if len(fb.CallIDs) != 1 {
		t.Errorf("CallIDs = %v, call id must not repeat", fb.CallIDs)
	}
}
