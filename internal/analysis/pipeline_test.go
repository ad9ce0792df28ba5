package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/supportiq/backend/internal/storage/models"
)

func testTranscript() *models.Transcript {
	return &models.Transcript{
		ID:       "tr-1",
		CallID:   "call-1",
		FullText: "CUSTOMER: my invoice has a duplicate charge and nobody fixed it yet",
	}
}

func testPipeline(store *memStore, completer Completer) *Pipeline {
	return NewPipeline(NewOrchestrator(completer, OrchestratorConfig{}), store, "gpt-4o-mini")
}

func TestPipelineFullRun(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, &fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepResponse:   minimalDeepJSON,
	})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	result, err := p.ProcessCall(context.Background(), testCall("call-1", started, 300), testTranscript())
	if err != nil {
		t.Fatalf("ProcessCall() error = %v", err)
	}

	if result.Degraded {
		t.Error("Degraded = true, want false")
	}
	if len(result.SinkErrors) != 0 {
		t.Errorf("SinkErrors = %v, want none", result.SinkErrors)
	}
	if len(store.analytics) != 1 {
		t.Errorf("analytics snapshots = %d, want 1", len(store.analytics))
	}
	if result.Ticket == nil || len(store.tickets) != 1 {
		t.Fatal("ticket not created")
	}
	if result.ProfileID == "" || len(store.profiles) != 1 {
		t.Error("profile not created")
	}
	if result.FeedbackCount != 1 || len(store.feedback) != 1 {
		t.Errorf("feedback count = %d (stored %d), want 1", result.FeedbackCount, len(store.feedback))
	}
	if len(store.rollups) != 2 {
		t.Errorf("rollup buckets = %d, want 2", len(store.rollups))
	}

	snapshot := store.analytics[0]
	if snapshot.PrimaryCategory != "billing" || snapshot.Degraded {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if snapshot.AnalysisModel != "gpt-4o-mini" {
		t.Errorf("AnalysisModel = %q", snapshot.AnalysisModel)
	}
	if snapshot.AgentPerformanceScore == nil {
		t.Error("AgentPerformanceScore = nil, want recorded score")
	}
}

func TestPipelineTranscriptTooShort(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, &fakeCompleter{triageResponse: minimalTriageJSON})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	transcript := &models.Transcript{FullText: "CUSTOMER: hi"}
	_, err := p.ProcessCall(context.Background(), testCall("call-1", started, 10), transcript)

	if !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("err = %v, want ErrTranscriptTooShort", err)
	}
	if len(store.analytics) != 0 || len(store.tickets) != 0 {
		t.Error("nothing may be written for an unusable transcript")
	}
}

func TestPipelineTriageFailureAborts(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, &fakeCompleter{
		triageErr:    errors.New("upstream 500"),
		deepResponse: minimalDeepJSON,
	})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := p.ProcessCall(context.Background(), testCall("call-1", started, 300), testTranscript())

	if !errors.Is(err, ErrTriageUnavailable) {
		t.Fatalf("err = %v, want ErrTriageUnavailable", err)
	}
	if len(store.analytics)+len(store.tickets)+len(store.profiles)+len(store.rollups) != 0 {
		t.Error("no sink may be written when triage failed")
	}
}

func TestPipelineDegradedRun(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, &fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepErr:        errors.New("upstream 500"),
	})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	result, err := p.ProcessCall(context.Background(), testCall("call-1", started, 300), testTranscript())
	if err != nil {
		t.Fatalf("ProcessCall() error = %v", err)
	}

	if !result.Degraded {
		t.Error("Degraded = false, want true")
	}
	if !result.ProfileSkipped {
		t.Error("ProfileSkipped = false, profile needs deep results")
	}
	if result.Ticket == nil {
		t.Fatal("ticket must still be created from triage alone")
	}
	if result.FeedbackCount != 0 || len(store.feedback) != 0 {
		t.Error("no feedback without deep results")
	}
	if len(store.rollups) != 2 {
		t.Errorf("rollup buckets = %d, rollups run on triage alone", len(store.rollups))
	}
	if !store.analytics[0].Degraded {
		t.Error("snapshot must be flagged degraded")
	}
	if store.analytics[0].AgentPerformanceScore != nil {
		t.Errorf("AgentPerformanceScore = %v, want nil without deep results",
			*store.analytics[0].AgentPerformanceScore)
	}
}

func TestPipelineSinkIsolation(t *testing.T) {
	store := newMemStore()
	store.failTicket = errors.New("tickets table locked")
	p := testPipeline(store, &fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepResponse:   minimalDeepJSON,
	})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	result, err := p.ProcessCall(context.Background(), testCall("call-1", started, 300), testTranscript())
	if err != nil {
		t.Fatalf("ProcessCall() error = %v, sink failures must not fail the run", err)
	}

	if len(result.SinkErrors) != 1 || result.SinkErrors[0].Sink != SinkTicket {
		t.Fatalf("SinkErrors = %v, want one ticket sink error", result.SinkErrors)
	}
	if result.Ticket != nil {
		t.Error("Ticket set despite failed write")
	}
	if result.ProfileID == "" {
		t.Error("profile sink must still run")
	}
	if result.FeedbackCount != 1 {
		t.Error("feedback sink must still run")
	}
	if len(store.rollups) != 2 {
		t.Error("rollup sink must still run")
	}
	if len(store.analytics) != 1 {
		t.Error("snapshot must still be written")
	}
}

func TestPipelineProfileSkippedWithoutIdentifier(t *testing.T) {
	store := newMemStore()
	p := testPipeline(store, &fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepResponse:   `{"customer_profile": {"contact_info": {"name": "Anonymous"}}}`,
	})
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	result, err := p.ProcessCall(context.Background(), testCall("call-1", started, 300), testTranscript())
	if err != nil {
		t.Fatalf("ProcessCall() error = %v", err)
	}

	if !result.ProfileSkipped {
		t.Error("ProfileSkipped = false, want true")
	}
	if len(result.SinkErrors) != 0 {
		t.Errorf("SinkErrors = %v, a missing identifier is not a failure", result.SinkErrors)
	}
	if len(store.profiles) != 0 {
		t.Error("no profile may be written without an identifier")
	}
}
