package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VPSStatus enumerates lifecycle states for an instance.
type VPSStatus string

const (
	VPSStatusProvisioning VPSStatus = "provisioning"
	VPSStatusRunning      VPSStatus = "running"
	VPSStatusStopped      VPSStatus = "stopped"
	VPSStatusSuspended    VPSStatus = "suspended"
	VPSStatusDeleted      VPSStatus = "deleted"
)

// SuspensionEntry is one record in the ordered suspension history.
type SuspensionEntry struct {
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
	By     string    `json:"by"`
}

// VPS is the instance aggregate, keyed by ContainerName which is unique
// across all owners. Invariant: Suspended == true iff Status == suspended.
type VPS struct {
	ContainerName     string            `json:"container_name"`
	Hostname          string            `json:"hostname"`
	Owner             string            `json:"owner"`
	RAM               string            `json:"ram"`
	CPU               int               `json:"cpu"`
	Storage           string            `json:"storage"`
	Config            string            `json:"config"`
	Status            VPSStatus         `json:"status"`
	Suspended         bool              `json:"suspended"`
	SuspensionHistory []SuspensionEntry `json:"suspension_history"`
	CreatedAt         time.Time         `json:"created_at"`
	SharedWith        []string          `json:"shared_with"`
	OS                string            `json:"os"`
	Plan              string            `json:"plan,omitempty"`
}

// ResourceSpec is the resource bundle applied to a container.
type ResourceSpec struct {
	RAMGB  int
	CPU    int
	DiskGB int
}

// Validate rejects non-positive resource values.
func (s ResourceSpec) Validate() error {
	if s.RAMGB <= 0 || s.CPU <= 0 || s.DiskGB <= 0 {
		return fmt.Errorf("ram, cpu and disk must be positive")
	}
	return nil
}

// ConfigString renders the human-readable resource summary.
func (s ResourceSpec) ConfigString() string {
	return fmt.Sprintf("%dGB RAM / %d CPU / %dGB Disk", s.RAMGB, s.CPU, s.DiskGB)
}

// ApplySpec updates the record's resource fields from a spec.
func (v *VPS) ApplySpec(spec ResourceSpec) {
	v.RAM = FormatGB(spec.RAMGB)
	v.CPU = spec.CPU
	v.Storage = FormatGB(spec.DiskGB)
	v.Config = spec.ConfigString()
}

// Spec parses the record's persisted resource fields.
func (v *VPS) Spec() (ResourceSpec, error) {
	ram, err := ParseGB(v.RAM)
	if err != nil {
		return ResourceSpec{}, fmt.Errorf("parse ram: %w", err)
	}
	disk, err := ParseGB(v.Storage)
	if err != nil {
		return ResourceSpec{}, fmt.Errorf("parse storage: %w", err)
	}
	return ResourceSpec{RAMGB: ram, CPU: v.CPU, DiskGB: disk}, nil
}

// FormatGB renders a gigabyte count in the persisted "NGB" form.
func FormatGB(n int) string {
	return fmt.Sprintf("%dGB", n)
}

// ParseGB parses the persisted "NGB" form.
func ParseGB(s string) (int, error) {
	return strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "GB"))
}
