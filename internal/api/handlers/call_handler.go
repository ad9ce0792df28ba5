package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/analysis"
	"github.com/supportiq/backend/internal/cache/redis"
	"github.com/supportiq/backend/internal/storage/sqlite"
	"github.com/supportiq/backend/pkg/logger"
)

type CallHandler struct {
	store    *sqlite.Client
	cache    *redis.Client
	pipeline *analysis.Pipeline
}

func NewCallHandler(store *sqlite.Client, cache *redis.Client, pipeline *analysis.Pipeline) *CallHandler {
	return &CallHandler{
		store:    store,
		cache:    cache,
		pipeline: pipeline,
	}
}

// ListCalls returns a page of calls with a summary of their analytics when
// available.
func (h *CallHandler) ListCalls(c *fiber.Ctx) error {
	tenantID := tenantFrom(c)
	status := c.Query("status")
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	calls, err := h.store.ListCalls(c.Context(), tenantID, status, limit, offset)
	if err != nil {
		logger.Error("Failed to list calls", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list calls",
		})
	}

	items := make([]fiber.Map, 0, len(calls))
	for _, call := range calls {
		item := fiber.Map{
			"id":               call.ID,
			"provider_call_id": call.ProviderCallID,
			"caller_phone":     call.CallerPhone,
			"agent_type":       call.AgentType,
			"status":           call.Status,
			"started_at":       call.StartedAt,
			"ended_at":         call.EndedAt,
			"duration_seconds": call.DurationSeconds,
		}

		analytics, err := h.store.GetAnalyticsByCallID(c.Context(), call.ID)
		if err != nil {
			logger.Warn("Failed to load analytics for call", zap.String("call_id", call.ID), zap.Error(err))
		}
		if analytics != nil {
			item["analytics"] = fiber.Map{
				"overall_sentiment": analytics.OverallSentiment,
				"sentiment_score":   analytics.SentimentScore,
				"primary_category":  analytics.PrimaryCategory,
				"resolution_status": analytics.ResolutionStatus,
				"urgency_level":     analytics.UrgencyLevel,
				"one_line_summary":  analytics.OneLineSummary,
				"degraded":          analytics.Degraded,
			}
		}

		items = append(items, item)
	}

	return c.JSON(fiber.Map{
		"calls":  items,
		"limit":  limit,
		"offset": offset,
	})
}

// GetCall returns one call with its transcript and full analytics snapshot.
func (h *CallHandler) GetCall(c *fiber.Ctx) error {
	call, err := h.store.GetCall(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to get call", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get call",
		})
	}
	if call == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Call not found",
		})
	}

	transcript, err := h.store.GetTranscript(c.Context(), call.ID)
	if err != nil {
		logger.Warn("Failed to load transcript", zap.String("call_id", call.ID), zap.Error(err))
	}
	analytics, err := h.store.GetAnalyticsByCallID(c.Context(), call.ID)
	if err != nil {
		logger.Warn("Failed to load analytics", zap.String("call_id", call.ID), zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"call":       call,
		"transcript": transcript,
		"analytics":  analytics,
	})
}

// ReanalyzeCall deletes a call's analysis artifacts and runs the pipeline
// again synchronously. Aggregates already fed by the first run are kept.
func (h *CallHandler) ReanalyzeCall(c *fiber.Ctx) error {
	call, err := h.store.GetCall(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to get call", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get call",
		})
	}
	if call == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Call not found",
		})
	}

	transcript, err := h.store.GetTranscript(c.Context(), call.ID)
	if err != nil {
		logger.Error("Failed to load transcript", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load transcript",
		})
	}
	if transcript == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Call has no transcript",
		})
	}

	if err := h.store.DeleteAnalysisArtifacts(c.Context(), call.ID); err != nil {
		logger.Error("Failed to delete analysis artifacts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset call analysis",
		})
	}

	result, err := h.pipeline.ProcessCall(c.Context(), call, transcript)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, analysis.ErrTranscriptTooShort) {
			status = fiber.StatusUnprocessableEntity
		}
		logger.Error("Reanalysis failed", zap.String("call_id", call.ID), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": "Analysis failed",
		})
	}

	if err := h.cache.InvalidateAnalytics(c.Context()); err != nil {
		logger.Warn("Failed to invalidate analytics cache", zap.Error(err))
	}

	sinkErrors := make([]string, 0, len(result.SinkErrors))
	for _, se := range result.SinkErrors {
		sinkErrors = append(sinkErrors, se.Error())
	}

	response := fiber.Map{
		"call_id":        result.CallID,
		"degraded":       result.Degraded,
		"feedback_count": result.FeedbackCount,
		"sink_errors":    sinkErrors,
	}
	if result.Ticket != nil {
		response["ticket_id"] = result.Ticket.ID
	}
	if result.ProfileID != "" {
		response["profile_id"] = result.ProfileID
	}

	return c.JSON(response)
}
