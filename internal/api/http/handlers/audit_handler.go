package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/repository"
	apperrors "github.com/spec-kit/vps-service/pkg/util"
)

// AuditHandler exposes the lifecycle audit log. Available only when an audit
// database is configured.
type AuditHandler struct {
	events repository.LifecycleEventRepository
}

// NewAuditHandler constructs handler. A nil repository disables the endpoint.
func NewAuditHandler(events repository.LifecycleEventRepository) *AuditHandler {
	return &AuditHandler{events: events}
}

// ListByContainer GET /admin/vps/:name/audit.
func (h *AuditHandler) ListByContainer(c *fiber.Ctx) error {
	if h.events == nil {
		return apperrors.NewNotFound("audit log", nil)
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("invalid limit", map[string]any{"limit": raw})
		}
		limit = parsed
	}
	events, err := h.events.ListByContainer(c.Context(), c.Params("name"), limit)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	items := make([]fiber.Map, 0, len(events))
	for _, event := range events {
		items = append(items, fiber.Map{
			"id":             event.ID,
			"container_name": event.ContainerName,
			"actor":          event.Actor,
			"action":         event.Action,
			"detail":         event.Detail,
			"created_at":     event.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
