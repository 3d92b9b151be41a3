package governor

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/spec-kit/vps-service/pkg/util"
)

// CPUSampler reports host-wide CPU utilization as a percentage.
type CPUSampler interface {
	Sample(ctx context.Context) (float64, error)
}

// HostCPUSampler measures utilization over a short window on the local host.
type HostCPUSampler struct {
	Window time.Duration
}

// NewHostCPUSampler returns a sampler with a one second measurement window.
func NewHostCPUSampler() *HostCPUSampler {
	return &HostCPUSampler{Window: time.Second}
}

// Sample returns aggregate CPU busy percentage across all cores.
func (s *HostCPUSampler) Sample(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, s.Window, false)
	if err != nil {
		return 0, util.NewInternalError(err)
	}
	if len(percents) == 0 {
		return 0, util.NewInternalError(errors.New("cpu sample returned no data"))
	}
	return percents[0], nil
}
