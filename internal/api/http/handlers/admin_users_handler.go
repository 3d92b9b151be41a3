package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/vps-service/internal/api/dto"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/service"
	apperrors "github.com/spec-kit/vps-service/pkg/util"
)

// AdminUsersHandler manages admin account endpoints.
type AdminUsersHandler struct {
	service *service.UserService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(userService *service.UserService) *AdminUsersHandler {
	return &AdminUsersHandler{service: userService}
}

// List GET /admin/users.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	items := make([]dto.UserResponse, 0)
	for _, user := range h.service.List() {
		items = append(items, userResponse(user))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /admin/users.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.AdminCreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.AdminCreate(c.Context(), actorFrom(principal), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// Update PATCH /admin/users/:username.
func (h *AdminUsersHandler) Update(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.AdminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.AdminUpdate(c.Context(), actorFrom(principal), c.Params("username"), service.UserUpdateInput{
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Delete DELETE /admin/users/:username.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.service.Delete(c.Context(), actorFrom(principal), c.Params("username")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetBanned POST /admin/users/:username/ban.
func (h *AdminUsersHandler) SetBanned(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.SetFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetBanned(c.Context(), actorFrom(principal), c.Params("username"), req.Value); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetSuspended POST /admin/users/:username/suspend.
func (h *AdminUsersHandler) SetSuspended(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.SetFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetSuspended(c.Context(), actorFrom(principal), c.Params("username"), req.Value); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddBalance POST /admin/users/:username/balance.
func (h *AdminUsersHandler) AddBalance(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.AddBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apperrors.NewValidationError("invalid amount", map[string]any{"amount": req.Amount})
	}
	user, err := h.service.AddBalance(c.Context(), actorFrom(principal), c.Params("username"), amount)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}
