package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/api/dto"
	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/service"
	apperrors "github.com/spec-kit/vps-service/pkg/util"
)

// SettingsHandler manages panel settings endpoints.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: settingsService}
}

// Get GET /settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": settingsResponse(h.service.Get())})
}

// Update PATCH /admin/settings.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.service.Update(c.Context(), actorFrom(principal), service.SettingsUpdateInput{
		PanelName:    req.PanelName,
		Announcement: req.Announcement,
		Logo:         req.Logo,
		Background:   req.Background,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

func settingsResponse(settings domain.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{
		PanelName:    settings.PanelName,
		Announcement: settings.Announcement,
		Logo:         settings.Logo,
		Background:   settings.Background,
	}
}
