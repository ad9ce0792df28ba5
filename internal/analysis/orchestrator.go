package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/llm"
	"github.com/supportiq/backend/internal/metrics"
	"github.com/supportiq/backend/pkg/logger"
)

// ErrTriageUnavailable is returned when the required triage extraction
// could not be completed. Deep extraction failures never produce it.
var ErrTriageUnavailable = errors.New("triage extraction unavailable")

// Completer is the completion surface the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type OrchestratorConfig struct {
	TriageMaxTokens int
	DeepMaxTokens   int
	CallTimeout     time.Duration
}

// Orchestrator runs the two extraction calls for a call transcript. The
// triage call is required; the deep call is best effort.
type Orchestrator struct {
	completer Completer
	cfg       OrchestratorConfig
}

// ExtractionResult carries the independent outcomes of both calls.
// Triage is nil iff TriageErr is non-nil; same for Deep/DeepErr.
type ExtractionResult struct {
	Triage    *TriageResult
	Deep      *DeepResult
	TriageErr error
	DeepErr   error
}

// Degraded reports whether triage succeeded but deep did not.
func (r *ExtractionResult) Degraded() bool {
	return r.TriageErr == nil && r.DeepErr != nil
}

func NewOrchestrator(completer Completer, cfg OrchestratorConfig) *Orchestrator {
	if cfg.TriageMaxTokens == 0 {
		cfg.TriageMaxTokens = 2048
	}
	if cfg.DeepMaxTokens == 0 {
		cfg.DeepMaxTokens = 3072
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Orchestrator{completer: completer, cfg: cfg}
}

// Extract runs triage and deep analysis concurrently against the
// formatted transcript. A failure of either call never cancels the
// other; each gets its own timeout derived from ctx.
func (o *Orchestrator) Extract(ctx context.Context, callID, transcript string) *ExtractionResult {
	result := &ExtractionResult{}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		result.Triage, result.TriageErr = o.runTriage(ctx, transcript)
	}()

	go func() {
		defer wg.Done()
		result.Deep, result.DeepErr = o.runDeep(ctx, transcript)
	}()

	wg.Wait()

	if result.TriageErr != nil {
		logger.Error("Triage extraction failed",
			zap.String("call_id", callID),
			zap.Error(result.TriageErr),
		)
	}
	if result.DeepErr != nil {
		logger.Warn("Deep extraction failed, continuing degraded",
			zap.String("call_id", callID),
			zap.Error(result.DeepErr),
		)
	}

	return result
}

func (o *Orchestrator) runTriage(ctx context.Context, transcript string) (*TriageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := o.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: triageSystemPrompt,
		UserPrompt:   triageUserPrompt(transcript),
		MaxTokens:    o.cfg.TriageMaxTokens,
		JSONMode:     true,
	})
	metrics.RecordExtraction("triage", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTriageUnavailable, err)
	}
	metrics.RecordTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	triage, err := ParseTriage(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTriageUnavailable, err)
	}
	return triage, nil
}

func (o *Orchestrator) runDeep(ctx context.Context, transcript string) (*DeepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := o.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: deepSystemPrompt,
		UserPrompt:   deepUserPrompt(transcript),
		MaxTokens:    o.cfg.DeepMaxTokens,
		JSONMode:     true,
	})
	metrics.RecordExtraction("deep", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("deep extraction failed: %w", err)
	}
	metrics.RecordTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	deep, err := ParseDeep(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("deep response unparseable: %w", err)
	}
	return deep, nil
}
