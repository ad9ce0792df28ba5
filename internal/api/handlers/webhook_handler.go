package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/analysis"
	"github.com/supportiq/backend/internal/cache/redis"
	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/internal/storage/sqlite"
	"github.com/supportiq/backend/pkg/logger"
)

// processedTTL bounds how long a provider call id stays claimed. Provider
// retries arrive within minutes; a day covers delayed redeliveries.
const processedTTL = 24 * time.Hour

// pipelineTimeout bounds one async analysis run end to end.
const pipelineTimeout = 5 * time.Minute

type WebhookHandler struct {
	store    *sqlite.Client
	cache    *redis.Client
	pipeline *analysis.Pipeline
}

func NewWebhookHandler(store *sqlite.Client, cache *redis.Client, pipeline *analysis.Pipeline) *WebhookHandler {
	return &WebhookHandler{
		store:    store,
		cache:    cache,
		pipeline: pipeline,
	}
}

type endOfCallReport struct {
	CallID          string                  `json:"call_id"`
	TenantID        string                  `json:"tenant_id"`
	CallerPhone     string                  `json:"caller_phone"`
	AgentType       string                  `json:"agent_type"`
	Status          string                  `json:"status"`
	RecordingURL    string                  `json:"recording_url"`
	StartedAt       int64                   `json:"started_at"`
	EndedAt         int64                   `json:"ended_at"`
	DurationSeconds int                     `json:"duration_seconds"`
	Transcript      string                  `json:"transcript"`
	TranscriptTurns []models.TranscriptTurn `json:"transcript_turns"`
}

// HandleVoiceWebhook ingests an end-of-call report. The provider treats any
// non-2xx as a delivery failure and retries, so the report is acknowledged
// unconditionally once parsed; analysis runs asynchronously.
func (h *WebhookHandler) HandleVoiceWebhook(c *fiber.Ctx) error {
	var report endOfCallReport
	if err := c.BodyParser(&report); err != nil {
		logger.Error("Failed to parse webhook body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(report.CallID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "call_id is required",
		})
	}
	if report.TenantID == "" {
		report.TenantID = tenantFrom(c)
	}

	claimed, err := h.cache.MarkProcessed(c.Context(), report.CallID, processedTTL)
	if err != nil {
		// Redis being down must not drop call data; proceed without the
		// duplicate guard.
		logger.Warn("Idempotency check unavailable", zap.Error(err))
		claimed = true
	}
	if !claimed {
		logger.Debug("Duplicate webhook delivery ignored", zap.String("provider_call_id", report.CallID))
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	call, transcript := buildCallRecords(&report)

	if err := h.store.UpsertCall(c.Context(), call); err != nil {
		logger.Error("Failed to persist call", zap.Error(err), zap.String("provider_call_id", report.CallID))
		h.releaseClaim(report.CallID)
		return c.JSON(fiber.Map{"status": "error", "error": "call not persisted"})
	}
	if err := h.store.SaveTranscript(c.Context(), transcript); err != nil {
		logger.Error("Failed to persist transcript", zap.Error(err), zap.String("call_id", call.ID))
		h.releaseClaim(report.CallID)
		return c.JSON(fiber.Map{"status": "error", "error": "transcript not persisted"})
	}

	go h.runPipeline(call, transcript)

	logger.Info("Call ingested",
		zap.String("call_id", call.ID),
		zap.String("provider_call_id", call.ProviderCallID),
		zap.String("tenant_id", call.TenantID),
	)

	return c.JSON(fiber.Map{
		"status":  "accepted",
		"call_id": call.ID,
	})
}

func (h *WebhookHandler) runPipeline(call *models.CallRecord, transcript *models.Transcript) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()

	result, err := h.pipeline.ProcessCall(ctx, call, transcript)
	if err != nil {
		logger.Error("Call analysis failed",
			zap.String("call_id", call.ID),
			zap.Error(err),
		)
		h.releaseClaim(call.ProviderCallID)
		return
	}

	if err := h.cache.InvalidateAnalytics(ctx); err != nil {
		logger.Warn("Failed to invalidate analytics cache", zap.Error(err))
	}

	logger.Info("Async analysis finished",
		zap.String("call_id", result.CallID),
		zap.Bool("degraded", result.Degraded),
		zap.Int("sink_errors", len(result.SinkErrors)),
	)
}

func (h *WebhookHandler) releaseClaim(providerCallID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.cache.ClearProcessed(ctx, providerCallID); err != nil {
		logger.Warn("Failed to release processed claim", zap.Error(err))
	}
}

func buildCallRecords(report *endOfCallReport) (*models.CallRecord, *models.Transcript) {
	status := report.Status
	if status == "" {
		status = models.CallStatusCompleted
	}

	startedAt := time.Now().UTC()
	if report.StartedAt > 0 {
		startedAt = time.Unix(report.StartedAt, 0).UTC()
	}

	var endedAt *time.Time
	if report.EndedAt > 0 {
		t := time.Unix(report.EndedAt, 0).UTC()
		endedAt = &t
	}

	duration := report.DurationSeconds
	if duration == 0 && endedAt != nil {
		duration = int(endedAt.Sub(startedAt).Seconds())
	}

	call := &models.CallRecord{
		ID:              uuid.New().String(),
		ProviderCallID:  report.CallID,
		TenantID:        report.TenantID,
		CallerPhone:     report.CallerPhone,
		AgentType:       report.AgentType,
		Status:          status,
		RecordingURL:    report.RecordingURL,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationSeconds: duration,
	}

	fullText := report.Transcript
	if fullText == "" {
		fullText = analysis.FormatTranscript(report.TranscriptTurns, "")
	}

	transcript := &models.Transcript{
		ID:        uuid.New().String(),
		CallID:    call.ID,
		Turns:     report.TranscriptTurns,
		FullText:  fullText,
		WordCount: len(strings.Fields(fullText)),
		TurnCount: len(report.TranscriptTurns),
		CreatedAt: startedAt,
	}

	return call, transcript
}

// tenantFrom resolves the tenant for a request: explicit query parameter,
// then the X-Tenant-ID header, then the default tenant.
func tenantFrom(c *fiber.Ctx) string {
	if tenantID := c.Query("tenant_id"); tenantID != "" {
		return tenantID
	}
	if tenantID := c.Get("X-Tenant-ID"); tenantID != "" {
		return tenantID
	}
	return "default"
}
