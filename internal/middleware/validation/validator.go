package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxBodySize         int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware performs cheap request screening before handlers run: content
// type, payload size, and the required fields of the webhook body. Handlers
// still parse payloads themselves; this keeps obvious garbage out of the
// logs and the pipeline.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PATCH" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}

			if len(c.Body()) > cfg.MaxBodySize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Request body exceeds maximum size",
				})
			}
		}

		if strings.Contains(c.Path(), "/webhooks/voice") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			callID, ok := req["call_id"].(string)
			if !ok || strings.TrimSpace(callID) == "" {
				cfg.Logger.Warn("Webhook rejected, missing call_id",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "call_id is required and must be a string",
				})
			}

			if tenantID, ok := req["tenant_id"].(string); ok && len(tenantID) > 128 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "tenant_id exceeds maximum length",
				})
			}
		}

		return c.Next()
	}
}
