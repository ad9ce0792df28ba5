package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/internal/storage/sqlite"
	"github.com/supportiq/backend/pkg/logger"
	"go.uber.org/zap"
)

var ticketStatuses = map[string]bool{
	models.TicketStatusOpen:       true,
	models.TicketStatusInProgress: true,
	models.TicketStatusResolved:   true,
	models.TicketStatusClosed:     true,
}

var ticketPriorities = map[string]bool{
	"critical": true,
	"high":     true,
	"medium":   true,
	"low":      true,
}

// TicketHandler serves the ticket queue derived from analyzed calls.
type TicketHandler struct {
	store *sqlite.Client
}

func NewTicketHandler(store *sqlite.Client) *TicketHandler {
	return &TicketHandler{store: store}
}

// ListTickets handles GET /api/v1/tickets with optional status and priority
// filters.
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	tenantID := tenantFrom(c)
	status := c.Query("status")
	priority := c.Query("priority")
	category := c.Query("category")

	if status != "" && !ticketStatuses[status] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid status filter",
		})
	}
	if priority != "" && !ticketPriorities[priority] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid priority filter",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	tickets, err := h.store.ListTickets(c.Context(), tenantID, status, priority, category, limit, offset)
	if err != nil {
		logger.Error("Failed to list tickets", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list tickets",
		})
	}

	return c.JSON(fiber.Map{
		"tickets": tickets,
		"count":   len(tickets),
		"limit":   limit,
		"offset":  offset,
	})
}

// GetTicket handles GET /api/v1/tickets/:id.
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.store.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to load ticket", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load ticket",
		})
	}
	if ticket == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "ticket not found",
		})
	}
	return c.JSON(ticket)
}

// UpdateTicket handles PATCH /api/v1/tickets/:id. Status and priority can be
// changed, and a note can be appended. Moving a ticket to resolved stamps
// resolved_at once; re-resolving keeps the original timestamp.
func (h *TicketHandler) UpdateTicket(c *fiber.Ctx) error {
	var req struct {
		Status   string `json:"status"`
		Priority string `json:"priority"`
		Note     struct {
			Content string `json:"content"`
			AddedBy string `json:"added_by"`
		} `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Status != "" && !ticketStatuses[req.Status] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid status",
		})
	}
	if req.Priority != "" && !ticketPriorities[req.Priority] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid priority",
		})
	}

	ticket, err := h.store.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to load ticket", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load ticket",
		})
	}
	if ticket == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "ticket not found",
		})
	}

	now := time.Now()
	if req.Status != "" && req.Status != ticket.Status {
		ticket.Status = req.Status
		if req.Status == models.TicketStatusResolved && ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
	}
	if req.Priority != "" {
		ticket.Priority = req.Priority
	}
	if req.Note.Content != "" {
		ticket.Notes = append(ticket.Notes, models.TicketNote{
			Content: req.Note.Content,
			AddedBy: req.Note.AddedBy,
			AddedAt: now,
		})
	}
	ticket.UpdatedAt = now

	if err := h.store.SaveTicket(c.Context(), ticket); err != nil {
		logger.Error("Failed to update ticket",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update ticket",
		})
	}

	logger.Info("Ticket updated",
		zap.String("ticket_id", ticket.ID),
		zap.String("status", ticket.Status))

	return c.JSON(ticket)
}

// TicketStats handles GET /api/v1/tickets/stats.
func (h *TicketHandler) TicketStats(c *fiber.Ctx) error {
	byStatus, byPriority, byCategory, err := h.store.TicketStats(c.Context(), tenantFrom(c))
	if err != nil {
		logger.Error("Failed to compute ticket stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to compute ticket stats",
		})
	}
	return c.JSON(fiber.Map{
		"by_status":   byStatus,
		"by_priority": byPriority,
		"by_category": byCategory,
	})
}
