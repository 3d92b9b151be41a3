package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/api/dto"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/service"
)

// AdminOrdersHandler manages admin order review endpoints.
type AdminOrdersHandler struct {
	service *service.OrderService
}

// NewAdminOrdersHandler constructs handler.
func NewAdminOrdersHandler(orderService *service.OrderService) *AdminOrdersHandler {
	return &AdminOrdersHandler{service: orderService}
}

// List GET /admin/orders.
func (h *AdminOrdersHandler) List(c *fiber.Ctx) error {
	items := make([]dto.OrderResponse, 0)
	for _, order := range h.service.ListAll() {
		items = append(items, orderResponse(order))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Approve POST /admin/orders/:id/approve.
func (h *AdminOrdersHandler) Approve(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	record, err := h.service.Approve(c.Context(), actorFrom(principal), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": vpsResponse(record)})
}

// Reject POST /admin/orders/:id/reject.
func (h *AdminOrdersHandler) Reject(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.service.Reject(c.Context(), actorFrom(principal), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
