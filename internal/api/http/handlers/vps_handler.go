package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/api/dto"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/service"
	apperrors "github.com/spec-kit/vps-service/pkg/util"
)

// VPSHandler manages end-user instance endpoints.
type VPSHandler struct {
	lifecycle *service.LifecycleService
	shell     *service.ShellService
}

// NewVPSHandler constructs handler.
func NewVPSHandler(lifecycle *service.LifecycleService, shell *service.ShellService) *VPSHandler {
	return &VPSHandler{lifecycle: lifecycle, shell: shell}
}

// List GET /vps.
func (h *VPSHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	records := h.lifecycle.ListForOwner(principal.Username())
	items := make([]dto.VPSResponse, 0, len(records))
	for _, record := range records {
		items = append(items, vpsResponse(record))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /vps/:name.
func (h *VPSHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	record, err := h.lifecycle.Get(c.Params("name"), actorFrom(principal))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Start POST /vps/:name/start.
func (h *VPSHandler) Start(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	record, err := h.lifecycle.Start(c.Context(), actorFrom(principal), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Stop POST /vps/:name/stop.
func (h *VPSHandler) Stop(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	record, err := h.lifecycle.Stop(c.Context(), actorFrom(principal), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Restart POST /vps/:name/restart.
func (h *VPSHandler) Restart(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	record, err := h.lifecycle.Restart(c.Context(), actorFrom(principal), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vpsResponse(record)})
}

// Stats GET /vps/:name/stats.
func (h *VPSHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	stats, err := h.lifecycle.Stats(c.Context(), actorFrom(principal), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.VPSStatsResponse{
		Status: string(stats.Status),
		CPU:    stats.CPU.String(),
		Memory: stats.Memory.String(),
		Disk:   stats.Disk.String(),
	}})
}

// Shell POST /vps/:name/shell.
func (h *VPSHandler) Shell(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	connection, err := h.shell.OpenSession(c.Context(), actorFrom(principal), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ShellSessionResponse{Connection: connection}})
}

// Dashboard GET /dashboard.
func (h *VPSHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	return c.JSON(fiber.Map{"data": summaryResponse(h.lifecycle.SummaryForOwner(principal.Username()))})
}

func summaryResponse(summary service.ResourceSummary) dto.ResourceSummaryResponse {
	return dto.ResourceSummaryResponse{
		Instances: summary.Instances,
		Active:    summary.Active,
		Suspended: summary.Suspended,
		RAMGB:     summary.RAMGB,
		CPU:       summary.CPU,
		DiskGB:    summary.DiskGB,
	}
}

func vpsResponse(record *domain.VPS) dto.VPSResponse {
	history := make([]dto.SuspensionEntryResponse, 0, len(record.SuspensionHistory))
	for _, entry := range record.SuspensionHistory {
		history = append(history, dto.SuspensionEntryResponse{
			Time:   entry.Time,
			Reason: entry.Reason,
			By:     entry.By,
		})
	}
	return dto.VPSResponse{
		ContainerName:     record.ContainerName,
		Hostname:          record.Hostname,
		Owner:             record.Owner,
		RAM:               record.RAM,
		CPU:               record.CPU,
		Storage:           record.Storage,
		Config:            record.Config,
		Status:            record.Status,
		Suspended:         record.Suspended,
		SuspensionHistory: history,
		OS:                record.OS,
		Plan:              record.Plan,
		CreatedAt:         record.CreatedAt,
	}
}
