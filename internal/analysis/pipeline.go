package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/metrics"
	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/pkg/logger"
)

// ErrTranscriptTooShort is returned when the formatted transcript is below
// the minimum analyzable length.
var ErrTranscriptTooShort = errors.New("transcript too short to analyze")

// analysisVersion tags every stored snapshot so reprocessed calls can be
// told apart from first-run results.
const analysisVersion = "2.0"

// Sink names used in results and metrics.
const (
	SinkAnalytics = "analytics"
	SinkTicket    = "ticket"
	SinkProfile   = "profile"
	SinkFeedback  = "feedback"
	SinkRollup    = "rollup"
)

// Store is the full persistence surface the pipeline writes to.
type Store interface {
	ProfileStore
	FeedbackStore
	RollupStore
	SaveAnalytics(ctx context.Context, analytics *models.CallAnalytics) error
	SaveTicket(ctx context.Context, ticket *models.Ticket) error
}

// SinkError records a failed downstream write. The pipeline keeps going
// when a sink fails; the error is reported, not propagated.
type SinkError struct {
	Sink string
	Err  error
}

func (e SinkError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Sink, e.Err)
}

// Result summarizes one pipeline run.
type Result struct {
	CallID         string
	Degraded       bool
	Ticket         *models.Ticket
	ProfileID      string
	ProfileSkipped bool
	FeedbackCount  int
	SinkErrors     []SinkError
}

// Pipeline drives a call through extraction and the downstream sinks.
type Pipeline struct {
	orchestrator *Orchestrator
	store        Store
	profiles     *ProfileAggregator
	feedback     *FeedbackAggregator
	rollups      *RollupUpdater
	model        string
}

func NewPipeline(orchestrator *Orchestrator, store Store, model string) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		store:        store,
		profiles:     NewProfileAggregator(store),
		feedback:     NewFeedbackAggregator(store),
		rollups:      NewRollupUpdater(store),
		model:        model,
	}
}

// ProcessCall runs the full pipeline for one call. It returns an error only
// when no analysis could be produced at all: an unusable transcript or a
// failed triage extraction. Downstream sink failures are isolated and
// reported in Result.SinkErrors.
func (p *Pipeline) ProcessCall(ctx context.Context, call *models.CallRecord, transcript *models.Transcript) (*Result, error) {
	start := time.Now()

	formatted := FormatTranscript(transcript.Turns, transcript.FullText)
	if !TranscriptUsable(formatted) {
		return nil, fmt.Errorf("%w: call %s", ErrTranscriptTooShort, call.ID)
	}

	extraction := p.orchestrator.Extract(ctx, call.ID, formatted)
	if extraction.TriageErr != nil {
		metrics.RecordPipelineRun("failed", time.Since(start))
		return nil, extraction.TriageErr
	}

	triage := extraction.Triage
	deep := extraction.Deep
	now := time.Now().UTC()

	result := &Result{
		CallID:   call.ID,
		Degraded: extraction.Degraded(),
	}
	if result.Degraded {
		metrics.RecordDegradedRun()
	}

	fail := func(sink string, err error) {
		result.SinkErrors = append(result.SinkErrors, SinkError{Sink: sink, Err: err})
		metrics.RecordSinkFailure(sink)
		logger.Error("Pipeline sink failed",
			zap.String("call_id", call.ID),
			zap.String("sink", sink),
			zap.Error(err),
		)
	}

	// Snapshot first so the raw result survives even if every aggregate
	// write fails.
	if err := p.store.SaveAnalytics(ctx, p.buildSnapshot(call, triage, deep, result.Degraded, now)); err != nil {
		fail(SinkAnalytics, err)
	}

	var contact ContactInfo
	if deep != nil {
		contact = deep.CustomerProfile.Contact
	}
	ticket := BuildTicket(call, triage, contact, now)
	if err := p.store.SaveTicket(ctx, ticket); err != nil {
		fail(SinkTicket, err)
	} else {
		result.Ticket = ticket
		metrics.RecordTicketCreated(ticket.Priority)
	}

	if deep != nil {
		profile, err := p.profiles.Aggregate(ctx, call, triage, deep, now)
		switch {
		case errors.Is(err, ErrIdentityAbsent):
			result.ProfileSkipped = true
			logger.Debug("Profile update skipped, no identifier",
				zap.String("call_id", call.ID),
			)
		case err != nil:
			fail(SinkProfile, err)
		default:
			result.ProfileID = profile.ID
			metrics.RecordProfileUpdate()
		}

		count, err := p.feedback.Aggregate(ctx, call, triage, deep, now)
		result.FeedbackCount = count
		if err != nil {
			fail(SinkFeedback, err)
		}
		metrics.RecordFeedbackItems(count)
	} else {
		result.ProfileSkipped = true
	}

	if err := p.rollups.Update(ctx, call, triage); err != nil {
		fail(SinkRollup, err)
	} else {
		metrics.RecordRollupUpdate()
	}

	metrics.RecordPipelineRun("completed", time.Since(start))

	logger.Info("Call analysis completed",
		zap.String("call_id", call.ID),
		zap.Bool("degraded", result.Degraded),
		zap.Int("feedback_items", result.FeedbackCount),
		zap.Int("sink_errors", len(result.SinkErrors)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (p *Pipeline) buildSnapshot(call *models.CallRecord, triage *TriageResult, deep *DeepResult, degraded bool, now time.Time) *models.CallAnalytics {
	snapshot := &models.CallAnalytics{
		ID:                    uuid.New().String(),
		CallID:                call.ID,
		OverallSentiment:      triage.OverallSentiment,
		SentimentScore:        triage.SentimentScore,
		PrimaryCategory:       triage.PrimaryCategory,
		SecondaryCategories:   triage.SecondaryCategories,
		Tags:                  triage.Tags,
		ResolutionStatus:      triage.ResolutionStatus,
		ResolutionNotes:       triage.ResolutionNotes,
		SatisfactionPredicted: triage.SatisfactionPredicted,
		CustomerIntent:        triage.CustomerIntent,
		KeyTopics:             triage.KeyTopics,
		ActionItems:           triage.ActionItems,
		CallSummary:           triage.CallSummary,
		OneLineSummary:        triage.OneLineSummary,
		UrgencyLevel:          triage.UrgencyLevel,
		CustomerEffortScore:   triage.CustomerEffortScore,
		CustomerHadToRepeat:   triage.CustomerHadToRepeat,
		TransferCount:         triage.TransferCount,
		WasEscalated:          triage.WasEscalated,
		EscalationReason:      triage.EscalationReason,
		Degraded:              degraded,
		AnalysisModel:         p.model,
		AnalysisVersion:       analysisVersion,
		CreatedAt:             now,
	}
	if deep != nil {
		snapshot.KnowledgeGaps = deep.KnowledgeGaps
		score := deep.AgentPerformance.OverallScore
		snapshot.AgentPerformanceScore = &score
	}
	return snapshot
}
