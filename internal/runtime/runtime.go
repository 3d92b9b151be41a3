// Package runtime adapts the host's container-management tool behind a typed
// capability interface. The adapter performs no retries; retry policy belongs
// to callers. Metric queries degrade to unknown sentinels instead of failing,
// so monitoring can never block a control operation.
package runtime

import (
	"context"
	"time"
)

// Status is a container's runtime state as reported by the tool.
type Status string

const (
	StatusRunning Status = "Running"
	StatusStopped Status = "Stopped"
	StatusUnknown Status = "Unknown"
)

// Metric is a possibly-unreadable measurement. Known distinguishes a genuine
// zero reading from an unreadable one.
type Metric struct {
	Value string
	Known bool
}

// UnknownMetric is the degrade sentinel for failed metric queries.
func UnknownMetric() Metric {
	return Metric{Value: "Unknown", Known: false}
}

func (m Metric) String() string {
	if !m.Known {
		return "Unknown"
	}
	return m.Value
}

// Adapter is the capability contract the lifecycle core requires from the
// container runtime. Control operations fail with RUNTIME_COMMAND_FAILED or
// RUNTIME_TIMEOUT; Info and the usage queries never fail.
type Adapter interface {
	Create(ctx context.Context, image, name string) error
	ConfigureResources(ctx context.Context, name string, ramMB, cpu, diskGB int) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	ResizeDisk(ctx context.Context, name string, diskGB int) error
	// StopAll force-stops every container on the host in one command.
	StopAll(ctx context.Context) error
	Exec(ctx context.Context, name, command string, timeout time.Duration) (string, error)
	Info(ctx context.Context, name string) Status
	CPUUsage(ctx context.Context, name string) Metric
	MemUsage(ctx context.Context, name string) Metric
	DiskUsage(ctx context.Context, name string) Metric
}
