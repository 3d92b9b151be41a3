package dto

import (
	"time"

	"github.com/spec-kit/vps-service/internal/domain"
)

// CreateVPSRequest payload for direct admin provisioning.
type CreateVPSRequest struct {
	Owner    string `json:"owner"`
	Hostname string `json:"hostname"`
	RAMGB    int    `json:"ram_gb"`
	CPU      int    `json:"cpu"`
	DiskGB   int    `json:"disk_gb"`
	OS       string `json:"os"`
	Plan     string `json:"plan"`
}

// ResizeVPSRequest payload.
type ResizeVPSRequest struct {
	RAMGB  int `json:"ram_gb"`
	CPU    int `json:"cpu"`
	DiskGB int `json:"disk_gb"`
}

// ReinstallVPSRequest payload.
type ReinstallVPSRequest struct {
	OS string `json:"os"`
}

// SuspendVPSRequest payload.
type SuspendVPSRequest struct {
	Reason string `json:"reason"`
}

// ExecRequest payload for in-container command execution.
type ExecRequest struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ExecResponse carries command output.
type ExecResponse struct {
	Output string `json:"output"`
}

// SuspensionEntryResponse is one suspension history record.
type SuspensionEntryResponse struct {
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
	By     string    `json:"by"`
}

// VPSResponse is the instance view returned to callers.
type VPSResponse struct {
	ContainerName     string                    `json:"container_name"`
	Hostname          string                    `json:"hostname"`
	Owner             string                    `json:"owner"`
	RAM               string                    `json:"ram"`
	CPU               int                       `json:"cpu"`
	Storage           string                    `json:"storage"`
	Config            string                    `json:"config"`
	Status            domain.VPSStatus          `json:"status"`
	Suspended         bool                      `json:"suspended"`
	SuspensionHistory []SuspensionEntryResponse `json:"suspension_history"`
	OS                string                    `json:"os"`
	Plan              string                    `json:"plan,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// VPSStatsResponse is a live runtime snapshot.
type VPSStatsResponse struct {
	Status string `json:"status"`
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
	Disk   string `json:"disk"`
}

// ShellSessionResponse carries a brokered terminal connection string.
type ShellSessionResponse struct {
	Connection string `json:"connection"`
}

// ResourceSummaryResponse aggregates allocated resources.
type ResourceSummaryResponse struct {
	Instances int `json:"instances"`
	Active    int `json:"active"`
	Suspended int `json:"suspended"`
	RAMGB     int `json:"ram_gb"`
	CPU       int `json:"cpu"`
	DiskGB    int `json:"disk_gb"`
}
