// Package governor runs the host CPU safety loop: when host-wide CPU
// utilization crosses a configured threshold, every container on the host is
// force-stopped in a single runtime command and the catalog is reconciled to
// match.
package governor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/config"
	"github.com/spec-kit/vps-service/internal/observability"
	"github.com/spec-kit/vps-service/internal/runtime"
	"github.com/spec-kit/vps-service/internal/service"
)

// Governor periodically samples host CPU and enforces the stop-the-world
// threshold. A failed sample skips the tick; the loop keeps running.
type Governor struct {
	lifecycle *service.LifecycleService
	runtime   runtime.Adapter
	sampler   CPUSampler
	threshold float64
	interval  time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// Dependencies bundles collaborators for the governor.
type Dependencies struct {
	Lifecycle *service.LifecycleService
	Runtime   runtime.Adapter
	Sampler   CPUSampler
	Governor  config.GovernorConfig
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// New constructs a governor from its dependencies.
func New(deps Dependencies) *Governor {
	return &Governor{
		lifecycle: deps.Lifecycle,
		runtime:   deps.Runtime,
		sampler:   deps.Sampler,
		threshold: deps.Governor.CPUThresholdPercent,
		interval:  deps.Governor.PollInterval(),
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Run blocks, sweeping on every tick until the context is cancelled.
func (g *Governor) Run(ctx context.Context) {
	g.logger.Info("governor started",
		zap.Float64("threshold_percent", g.threshold),
		zap.Duration("interval", g.interval),
	)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("governor stopped")
			return
		case <-ticker.C:
			g.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sample-and-enforce pass. The catalog sweep goes
// through the lifecycle service so it serializes with in-flight transitions
// per container: a start racing the host-wide stop cannot leave its record
// running behind the sweep.
func (g *Governor) RunOnce(ctx context.Context) {
	usage, err := g.sampler.Sample(ctx)
	if err != nil {
		g.logger.Warn("host cpu sample failed; skipping sweep", zap.Error(err))
		return
	}
	if usage <= g.threshold {
		return
	}

	g.logger.Warn("host cpu above threshold; force-stopping all containers",
		zap.Float64("usage_percent", usage),
		zap.Float64("threshold_percent", g.threshold),
	)
	if err := g.runtime.StopAll(ctx); err != nil {
		g.logger.Error("host-wide stop failed", zap.Error(err))
		return
	}
	g.metrics.RecordGovernorStop()
	for _, name := range g.lifecycle.MarkAllStopped(ctx) {
		g.logger.Info("container stopped by governor",
			zap.String("container", name),
			zap.Float64("usage_percent", usage),
		)
	}
}
