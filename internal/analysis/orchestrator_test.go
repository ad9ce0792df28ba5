package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/supportiq/backend/internal/llm"
)

const minimalTriageJSON = `{
	"overall_sentiment": "negative",
	"sentiment_score": -0.4,
	"primary_category": "billing",
	"resolution_status": "unresolved",
	"customer_satisfaction_predicted": 2.5,
	"call_summary": "Billing dispute, not resolved on the call."
}`

const minimalDeepJSON = `{
	"customer_profile": {
		"contact_info": {"email": "pat@example.com"},
		"feedback": {"pain_points": ["confusing pricing page"]}
	}
}`

// fakeCompleter routes responses by the prompt kind. A zero delay responds
// immediately; otherwise the call blocks until the delay elapses or ctx
// expires.
type fakeCompleter struct {
	triageResponse string
	triageErr      error
	deepResponse   string
	deepErr        error
	deepDelay      time.Duration
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	isTriage := strings.Contains(req.SystemPrompt, "triage")
	if isTriage {
		if f.triageErr != nil {
			return nil, f.triageErr
		}
		return &llm.CompletionResponse{Content: f.triageResponse}, nil
	}

	if f.deepDelay > 0 {
		select {
		case <-time.After(f.deepDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.deepErr != nil {
		return nil, f.deepErr
	}
	return &llm.CompletionResponse{Content: f.deepResponse}, nil
}

func TestExtractBothSucceed(t *testing.T) {
	o := NewOrchestrator(&fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepResponse:   minimalDeepJSON,
	}, OrchestratorConfig{})

	result := o.Extract(context.Background(), "call-1", "CUSTOMER: my invoice is wrong and nobody helps")

	if result.TriageErr != nil {
		t.Fatalf("TriageErr = %v", result.TriageErr)
	}
	if result.DeepErr != nil {
		t.Fatalf("DeepErr = %v", result.DeepErr)
	}
	if result.Degraded() {
		t.Error("Degraded() = true, want false")
	}
	if result.Triage.PrimaryCategory != "billing" {
		t.Errorf("PrimaryCategory = %q", result.Triage.PrimaryCategory)
	}
	if result.Deep.CustomerProfile.Contact.Email != "pat@example.com" {
		t.Errorf("contact email = %q", result.Deep.CustomerProfile.Contact.Email)
	}
}

func TestExtractDeepFailureIsDegraded(t *testing.T) {
	o := NewOrchestrator(&fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepErr:        errors.New("upstream 500"),
	}, OrchestratorConfig{})

	result := o.Extract(context.Background(), "call-1", "CUSTOMER: my invoice is wrong and nobody helps")

	if result.TriageErr != nil {
		t.Fatalf("TriageErr = %v, triage must survive a deep failure", result.TriageErr)
	}
	if result.DeepErr == nil {
		t.Fatal("DeepErr = nil, want error")
	}
	if result.Deep != nil {
		t.Error("Deep must be nil when the deep call failed")
	}
	if !result.Degraded() {
		t.Error("Degraded() = false, want true")
	}
}

func TestExtractDeepTimeoutIsDegraded(t *testing.T) {
	o := NewOrchestrator(&fakeCompleter{
		triageResponse: minimalTriageJSON,
		deepResponse:   minimalDeepJSON,
		deepDelay:      time.Second,
	}, OrchestratorConfig{CallTimeout: 20 * time.Millisecond})

	result := o.Extract(context.Background(), "call-1", "CUSTOMER: my invoice is wrong and nobody helps")

	if result.TriageErr != nil {
		t.Fatalf("TriageErr = %v", result.TriageErr)
	}
	if !errors.Is(result.DeepErr, context.DeadlineExceeded) {
		t.Fatalf("DeepErr = %v, want deadline exceeded", result.DeepErr)
	}
	if !result.Degraded() {
		t.Error("Degraded() = false, want true")
	}
}

func TestExtractTriageFailure(t *testing.T) {
	o := NewOrchestrator(&fakeCompleter{
		triageErr:    errors.New("upstream 500"),
		deepResponse: minimalDeepJSON,
	}, OrchestratorConfig{})

	result := o.Extract(context.Background(), "call-1", "CUSTOMER: my invoice is wrong and nobody helps")

	if !errors.Is(result.TriageErr, ErrTriageUnavailable) {
		t.Fatalf("TriageErr = %v, want ErrTriageUnavailable", result.TriageErr)
	}
	if result.Triage != nil {
		t.Error("Triage must be nil on failure")
	}
	if result.DeepErr != nil {
		t.Errorf("DeepErr = %v, deep must still run", result.DeepErr)
	}
	if result.Degraded() {
		t.Error("a failed triage run is not degraded, it is failed")
	}
}

func TestExtractUnparseableTriage(t *testing.T) {
	o := NewOrchestrator(&fakeCompleter{
		triageResponse: "I could not analyze this call.",
		deepResponse:   minimalDeepJSON,
	}, OrchestratorConfig{})

	result := o.Extract(context.Background(), "call-1", "CUSTOMER: my invoice is wrong and nobody helps")

	if !errors.Is(result.TriageErr, ErrTriageUnavailable) {
		t.Fatalf("TriageErr = %v, want ErrTriageUnavailable", result.TriageErr)
	}
}
