package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/api/dto"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/service"
	apperrors "github.com/spec-kit/vps-service/pkg/util"
)

const defaultExecTimeout = 30 * time.Second

// AdminVPSHandler manages admin instance endpoints.
type AdminVPSHandler struct {
	lifecycle *service.LifecycleService
}

// NewAdminVPSHandler constructs handler.
func NewAdminVPSHandler(lifecycle *service.LifecycleService) *AdminVPSHandler {
	return &AdminVPSHandler{lifecycle: lifecycle}
}

// Dashboard GET /admin/dashboard.
func (h *AdminVPSHandler) Dashboard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": summaryResponse(h.lifecycle.HostSummary())})
}

// List GET /admin/vps.
func (h *AdminVPSHandler) List(c *fiber.Ctx) error {
	items := make([]dto.VPSResponse, 0)
	for _, record := range h.lifecycle.ListAll() {
		items = append(items, vpsResponse(record))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /admin/vps.
func (h *AdminVPSHandler) Create(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.CreateVPSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.lifecycle.Create(c.Context(), actorFrom(principal), service.CreateInput{
		Owner:    req.Owner,
		Hostname: req.Hostname,
		Spec:     domain.ResourceSpec{RAMGB: req.RAMGB, CPU: req.CPU, DiskGB: req.DiskGB},
		OSKey:    req.OS,
		Plan:     req.Plan,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": vpsResponse(record)})
}

// Resize POST /admin/vps/:name/resize.
func (h *AdminVPSHandler) Resize(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.ResizeVPSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.lifecycle.Resize(c.Context(), actorFrom(principal), c.Params("name"),
		domain.ResourceSpec{RAMGB: req.RAMGB, CPU: req.CPU, DiskGB: req.DiskGB})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Reinstall POST /admin/vps/:name/reinstall.
func (h *AdminVPSHandler) Reinstall(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.ReinstallVPSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.lifecycle.Reinstall(c.Context(), actorFrom(principal), c.Params("name"), req.OS)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Suspend POST /admin/vps/:name/suspend.
func (h *AdminVPSHandler) Suspend(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.SuspendVPSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.lifecycle.Suspend(c.Context(), actorFrom(principal), c.Params("name"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Unsuspend POST /admin/vps/:name/unsuspend.
func (h *AdminVPSHandler) Unsuspend(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	record, err := h.lifecycle.Unsuspend(c.Context(), actorFrom(principal), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Delete DELETE /admin/vps/:name.
func (h *AdminVPSHandler) Delete(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.lifecycle.Delete(c.Context(), actorFrom(principal), c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Exec POST /admin/vps/:name/exec.
func (h *AdminVPSHandler) Exec(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.ExecRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	timeout := defaultExecTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	output, err := h.lifecycle.Exec(c.Context(), actorFrom(principal), c.Params("name"), req.Command, timeout)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ExecResponse{Output: output}})
}
