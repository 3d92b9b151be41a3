package domain

// Settings holds global panel presentation values, mutated only by admins.
type Settings struct {
	PanelName    string `json:"panel_name"`
	Announcement string `json:"announcement"`
	Logo         string `json:"logo,omitempty"`
	Background   string `json:"background,omitempty"`
}

// DefaultSettings returns the values used when no settings were persisted yet.
func DefaultSettings() Settings {
	return Settings{
		PanelName:    "SVM Panel",
		Announcement: "Welcome To SVM PANEL",
	}
}
