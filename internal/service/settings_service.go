package service

import (
	"context"

	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

// SettingsService reads and updates the global panel settings.
type SettingsService struct {
	store *store.FileStore
}

// SettingsUpdateInput carries optional edits; nil fields are untouched.
// Logo and background are references to already-stored assets.
type SettingsUpdateInput struct {
	PanelName    *string
	Announcement *string
	Logo         *string
	Background   *string
}

// NewSettingsService constructs the service.
func NewSettingsService(s *store.FileStore) *SettingsService {
	return &SettingsService{store: s}
}

// Get returns the current settings.
func (s *SettingsService) Get() domain.Settings {
	return s.store.Settings()
}

// Update applies admin edits to the settings record.
func (s *SettingsService) Update(ctx context.Context, actor Actor, input SettingsUpdateInput) (domain.Settings, error) {
	if !actor.Admin {
		return domain.Settings{}, util.NewForbidden("admin access required")
	}
	var updated domain.Settings
	err := s.store.MutateSettings(func(settings *domain.Settings) error {
		if input.PanelName != nil && *input.PanelName != "" {
			settings.PanelName = *input.PanelName
		}
		if input.Announcement != nil && *input.Announcement != "" {
			settings.Announcement = *input.Announcement
		}
		if input.Logo != nil {
			settings.Logo = *input.Logo
		}
		if input.Background != nil {
			settings.Background = *input.Background
		}
		updated = *settings
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return updated, nil
}
