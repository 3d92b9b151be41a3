package dto

// UpdateSettingsRequest payload; nil fields are untouched.
type UpdateSettingsRequest struct {
	PanelName    *string `json:"panel_name"`
	Announcement *string `json:"announcement"`
	Logo         *string `json:"logo"`
	Background   *string `json:"background"`
}

// SettingsResponse is the panel settings view.
type SettingsResponse struct {
	PanelName    string `json:"panel_name"`
	Announcement string `json:"announcement"`
	Logo         string `json:"logo,omitempty"`
	Background   string `json:"background,omitempty"`
}
