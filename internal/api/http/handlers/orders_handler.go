package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/api/dto"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/service"
	apperrors "github.com/spec-kit/vps-service/pkg/util"
)

// OrdersHandler manages end-user plan and order endpoints.
type OrdersHandler struct {
	service *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{service: orderService}
}

// ListPlans GET /plans.
func (h *OrdersHandler) ListPlans(c *fiber.Ctx) error {
	items := make([]dto.PlanResponse, 0, len(domain.Plans))
	for key, plan := range domain.Plans {
		items = append(items, dto.PlanResponse{
			Key:    key,
			Name:   plan.Name,
			Emoji:  plan.Emoji,
			RAMGB:  plan.RAMGB,
			CPU:    plan.CPU,
			DiskGB: plan.DiskGB,
			Price:  plan.Price,
			Color:  plan.Color,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].RAMGB < items[j].RAMGB })
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /orders.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.CreateOrder(c.Context(), principal.Username(), req.PlanKey)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": orderResponse(order)})
}

// Get GET /orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	order, err := h.service.GetForBuyer(principal.Username(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// AttachProof POST /orders/:id/proof.
func (h *OrdersHandler) AttachProof(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AttachProofRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.service.AttachProof(c.Context(), principal.Username(), c.Params("id"), req.ProofRef)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

func orderResponse(order *domain.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:        order.ID,
		Buyer:     order.Buyer,
		PlanKey:   order.PlanKey,
		Status:    order.Status,
		ProofRef:  order.ProofRef,
		CreatedAt: order.CreatedAt,
	}
}
