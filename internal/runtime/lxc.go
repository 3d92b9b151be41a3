package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/vps-service/internal/config"
)

// LXC is a thin shim over the lxc client binary. Every call runs under a
// bounded deadline: the configured control timeout for control operations,
// the shorter metric timeout for status and usage queries.
type LXC struct {
	binary         string
	storagePool    string
	controlTimeout time.Duration
	metricTimeout  time.Duration
	runner         Runner
}

// NewLXC builds the adapter from config, using the given runner.
func NewLXC(cfg config.RuntimeConfig, runner Runner) *LXC {
	return &LXC{
		binary:         cfg.Binary,
		storagePool:    cfg.StoragePool,
		controlTimeout: cfg.ControlTimeout(),
		metricTimeout:  cfg.MetricTimeout(),
		runner:         runner,
	}
}

func (l *LXC) control(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.controlTimeout)
	defer cancel()
	return l.runner.Run(ctx, l.binary, args...)
}

func (l *LXC) metric(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.metricTimeout)
	defer cancel()
	return l.runner.Run(ctx, l.binary, args...)
}

// Create initializes a container from an image without starting it.
func (l *LXC) Create(ctx context.Context, image, name string) error {
	_, err := l.control(ctx, "init", image, name, "--storage", l.storagePool)
	return err
}

// ConfigureResources applies memory, cpu and root disk limits.
func (l *LXC) ConfigureResources(ctx context.Context, name string, ramMB, cpu, diskGB int) error {
	if _, err := l.control(ctx, "config", "set", name, "limits.memory", fmt.Sprintf("%dMB", ramMB)); err != nil {
		return err
	}
	if _, err := l.control(ctx, "config", "set", name, "limits.cpu", strconv.Itoa(cpu)); err != nil {
		return err
	}
	return l.ResizeDisk(ctx, name, diskGB)
}

// Start starts the container.
func (l *LXC) Start(ctx context.Context, name string) error {
	_, err := l.control(ctx, "start", name)
	return err
}

// Stop stops the container.
func (l *LXC) Stop(ctx context.Context, name string) error {
	_, err := l.control(ctx, "stop", name)
	return err
}

// Restart restarts the container.
func (l *LXC) Restart(ctx context.Context, name string) error {
	_, err := l.control(ctx, "restart", name)
	return err
}

// Delete force-removes the container.
func (l *LXC) Delete(ctx context.Context, name string) error {
	_, err := l.control(ctx, "delete", name, "--force")
	return err
}

// ResizeDisk resizes the root device.
func (l *LXC) ResizeDisk(ctx context.Context, name string, diskGB int) error {
	_, err := l.control(ctx, "config", "device", "set", name, "root", "size", fmt.Sprintf("%dGB", diskGB))
	return err
}

// StopAll force-stops every container on the host in a single command.
func (l *LXC) StopAll(ctx context.Context) error {
	_, err := l.control(ctx, "stop", "--all", "--force")
	return err
}

// Exec runs a shell command inside the container under the caller's timeout.
func (l *LXC) Exec(ctx context.Context, name, command string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.runner.Run(ctx, l.binary, "exec", name, "--", "bash", "-c", command)
}

// Info reports the container's status, degrading to Unknown on any failure.
func (l *LXC) Info(ctx context.Context, name string) Status {
	out, err := l.metric(ctx, "info", name)
	if err != nil {
		return StatusUnknown
	}
	return parseInfoStatus(out)
}

// CPUUsage reports in-container CPU utilization.
func (l *LXC) CPUUsage(ctx context.Context, name string) Metric {
	out, err := l.metric(ctx, "exec", name, "--", "top", "-bn1")
	if err != nil {
		return UnknownMetric()
	}
	return parseTopCPU(out)
}

// MemUsage reports in-container memory usage.
func (l *LXC) MemUsage(ctx context.Context, name string) Metric {
	out, err := l.metric(ctx, "exec", name, "--", "free", "-m")
	if err != nil {
		return UnknownMetric()
	}
	return parseFreeMem(out)
}

// DiskUsage reports root filesystem usage.
func (l *LXC) DiskUsage(ctx context.Context, name string) Metric {
	out, err := l.metric(ctx, "exec", name, "--", "df", "-h", "/")
	if err != nil {
		return UnknownMetric()
	}
	return parseDFDisk(out)
}

func parseInfoStatus(output string) Status {
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(line, "Status: "); ok {
			switch strings.TrimSpace(rest) {
			case "Running", "RUNNING":
				return StatusRunning
			case "Stopped", "STOPPED":
				return StatusStopped
			default:
				return StatusUnknown
			}
		}
	}
	return StatusUnknown
}

// parseTopCPU extracts utilization from a `top -bn1` header by reading the
// idle percentage: the token preceding "id,".
func parseTopCPU(output string) Metric {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "%Cpu(s):") {
			continue
		}
		words := strings.Fields(line)
		for i, word := range words {
			if word != "id," || i == 0 {
				continue
			}
			idle, err := strconv.ParseFloat(strings.TrimSuffix(words[i-1], ","), 64)
			if err != nil {
				return UnknownMetric()
			}
			return Metric{Value: fmt.Sprintf("%.1f%%", 100.0-idle), Known: true}
		}
		return UnknownMetric()
	}
	return UnknownMetric()
}

// parseFreeMem reads the Mem: row of `free -m`.
func parseFreeMem(output string) Metric {
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return UnknownMetric()
	}
	parts := strings.Fields(lines[1])
	if len(parts) < 3 {
		return UnknownMetric()
	}
	total, err1 := strconv.Atoi(parts[1])
	used, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return UnknownMetric()
	}
	pct := 0.0
	if total > 0 {
		pct = float64(used) / float64(total) * 100
	}
	return Metric{Value: fmt.Sprintf("%d/%d MB (%.1f%%)", used, total, pct), Known: true}
}

// parseDFDisk reads the root device row of `df -h /`.
func parseDFDisk(output string) Metric {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "/dev/") || !strings.Contains(line, " /") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		return Metric{Value: fmt.Sprintf("%s/%s (%s)", parts[2], parts[1], parts[4]), Known: true}
	}
	return UnknownMetric()
}
