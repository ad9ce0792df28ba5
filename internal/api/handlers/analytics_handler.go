package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportiq/backend/internal/cache/redis"
	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/internal/storage/sqlite"
	"github.com/supportiq/backend/pkg/logger"
	"github.com/supportiq/backend/pkg/utils"
	"go.uber.org/zap"
)

var feedbackTypes = map[string]bool{
	"pain_point":      true,
	"feature_request": true,
	"complaint":       true,
	"compliment":      true,
	"knowledge_gap":   true,
}

// AnalyticsHandler serves the aggregate read side: daily rollups, the
// feedback leaderboard, and customer profiles.
type AnalyticsHandler struct {
	store    *sqlite.Client
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewAnalyticsHandler(store *sqlite.Client, cache *redis.Client, cacheTTL time.Duration) *AnalyticsHandler {
	return &AnalyticsHandler{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// DailyRollups handles GET /api/v1/analytics/daily. With from/to it returns a
// date range; otherwise the single bucket for date (default today, UTC).
// tenant_id="" selects the global bucket. Responses are cached in Redis and
// invalidated whenever the pipeline writes new analytics.
func (h *AnalyticsHandler) DailyRollups(c *fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	from := c.Query("from")
	to := c.Query("to")
	date := c.Query("date")

	if from != "" || to != "" {
		if !validDate(from) || !validDate(to) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "from and to must be YYYY-MM-DD",
			})
		}
		return h.rollupRange(c, tenantID, from, to)
	}

	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if !validDate(date) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "date must be YYYY-MM-DD",
		})
	}

	cacheKey := utils.HashKey("rollup", tenantID, date)
	var cached models.DailyRollup
	if found, err := h.cache.GetAnalytics(c.Context(), cacheKey, &cached); err == nil && found {
		return c.JSON(fiber.Map{"rollup": cached, "cached": true})
	}

	rollup, err := h.store.FindRollup(c.Context(), date, tenantID)
	if err != nil {
		logger.Error("Failed to load rollup", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load rollup",
		})
	}
	if rollup == nil {
		rollup = &models.DailyRollup{
			Date:              date,
			TenantID:          tenantID,
			CategoryBreakdown: map[string]int{},
		}
	}

	if err := h.cache.SetAnalytics(c.Context(), cacheKey, rollup, h.cacheTTL); err != nil {
		logger.Warn("Failed to cache rollup", zap.Error(err))
	}

	return c.JSON(fiber.Map{"rollup": rollup, "cached": false})
}

func (h *AnalyticsHandler) rollupRange(c *fiber.Ctx, tenantID, from, to string) error {
	cacheKey := utils.HashKey("rollup-range", tenantID, from, to)
	var cached []models.DailyRollup
	if found, err := h.cache.GetAnalytics(c.Context(), cacheKey, &cached); err == nil && found {
		return c.JSON(fiber.Map{"rollups": cached, "count": len(cached), "cached": true})
	}

	rollups, err := h.store.ListRollups(c.Context(), tenantID, from, to)
	if err != nil {
		logger.Error("Failed to list rollups", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list rollups",
		})
	}

	if err := h.cache.SetAnalytics(c.Context(), cacheKey, rollups, h.cacheTTL); err != nil {
		logger.Warn("Failed to cache rollups", zap.Error(err))
	}

	return c.JSON(fiber.Map{"rollups": rollups, "count": len(rollups), "cached": false})
}

// FeedbackLeaderboard handles GET /api/v1/analytics/feedback, returning
// aggregated feedback items ordered by occurrence count.
func (h *AnalyticsHandler) FeedbackLeaderboard(c *fiber.Ctx) error {
	tenantID := tenantFrom(c)
	feedbackType := c.Query("type")
	if feedbackType != "" && !feedbackTypes[feedbackType] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid feedback type",
		})
	}

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, err := h.store.ListFeedback(c.Context(), tenantID, feedbackType, limit)
	if err != nil {
		logger.Error("Failed to list feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list feedback",
		})
	}

	return c.JSON(fiber.Map{
		"feedback": items,
		"count":    len(items),
	})
}

// GetProfile handles GET /api/v1/profiles/:id.
func (h *AnalyticsHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.store.GetProfile(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to load profile", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load profile",
		})
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "profile not found",
		})
	}
	return c.JSON(profile)
}

// ListProfiles handles GET /api/v1/profiles.
func (h *AnalyticsHandler) ListProfiles(c *fiber.Ctx) error {
	tenantID := tenantFrom(c)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	profiles, err := h.store.ListProfiles(c.Context(), tenantID, limit, offset)
	if err != nil {
		logger.Error("Failed to list profiles", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list profiles",
		})
	}

	return c.JSON(fiber.Map{
		"profiles": profiles,
		"count":    len(profiles),
		"limit":    limit,
		"offset":   offset,
	})
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
