package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/audit"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/runtime"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

// Actor identifies who requested a transition.
type Actor struct {
	Username string
	Admin    bool
}

// LifecycleService enacts the per-instance state machine. Transitions on the
// same container are serialized through a keyed lock; different containers
// proceed in parallel.
type LifecycleService struct {
	store    *store.FileStore
	runtime  runtime.Adapter
	audit    audit.Recorder
	sessions SessionCache
	logger   *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
// Sessions is optional; when set, cached shell connections are dropped on
// transitions that kill them.
type LifecycleDependencies struct {
	Store    *store.FileStore
	Runtime  runtime.Adapter
	Audit    audit.Recorder
	Sessions SessionCache
	Logger   *zap.Logger
}

// CreateInput describes a provisioning request.
type CreateInput struct {
	Owner    string
	Hostname string
	Spec     domain.ResourceSpec
	OSKey    string
	Plan     string
}

// InstanceStats is a live snapshot from the runtime. Metric fields degrade
// to unknown sentinels rather than failing.
type InstanceStats struct {
	Status runtime.Status
	CPU    runtime.Metric
	Memory runtime.Metric
	Disk   runtime.Metric
}

var allowedTransitions = map[domain.VPSStatus][]domain.VPSStatus{
	domain.VPSStatusProvisioning: {domain.VPSStatusRunning, domain.VPSStatusDeleted},
	domain.VPSStatusRunning:      {domain.VPSStatusStopped, domain.VPSStatusSuspended, domain.VPSStatusDeleted},
	domain.VPSStatusStopped:      {domain.VPSStatusRunning, domain.VPSStatusSuspended, domain.VPSStatusDeleted},
	domain.VPSStatusSuspended:    {domain.VPSStatusRunning, domain.VPSStatusDeleted},
	domain.VPSStatusDeleted:      {},
}

func isValidTransition(current, next domain.VPSStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		store:    deps.Store,
		runtime:  deps.Runtime,
		audit:    deps.Audit,
		sessions: deps.Sessions,
		logger:   deps.Logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockContainer serializes transitions per container name.
func (s *LifecycleService) lockContainer(name string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[name] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// resolve loads the record and enforces ownership for non-admin actors.
// An instance owned by someone else does not resolve, by design the caller
// learns nothing beyond NOT_FOUND.
func (s *LifecycleService) resolve(containerName string, actor Actor) (*domain.VPS, error) {
	record, ok := s.store.GetVPS(containerName)
	if !ok {
		return nil, util.NewNotFound("vps", map[string]any{"container_name": containerName})
	}
	if !actor.Admin && record.Owner != actor.Username {
		return nil, util.NewNotFound("vps", map[string]any{"container_name": containerName})
	}
	return record, nil
}

// Get returns the record for the claimed owner.
func (s *LifecycleService) Get(containerName string, actor Actor) (*domain.VPS, error) {
	return s.resolve(containerName, actor)
}

// Create provisions a new instance: init, configure, start, then insert the
// record as running. On any runtime failure the record is never persisted and
// the partially created container is removed best-effort. There is no host
// capacity admission check before provisioning.
func (s *LifecycleService) Create(ctx context.Context, actor Actor, input CreateInput) (*domain.VPS, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	if err := input.Spec.Validate(); err != nil {
		return nil, util.NewValidationError(err.Error(), nil)
	}
	if _, ok := s.store.GetUser(input.Owner); !ok {
		return nil, util.NewNotFound("user", map[string]any{"username": input.Owner})
	}
	osKey, image := domain.ImageForOS(input.OSKey)

	containerName := s.nextContainerName(input.Owner, input.Hostname)
	unlock := s.lockContainer(containerName)
	defer unlock()

	if err := s.runtime.Create(ctx, image, containerName); err != nil {
		return nil, withPhase(err, "create")
	}
	if err := s.runtime.ConfigureResources(ctx, containerName, input.Spec.RAMGB*1024, input.Spec.CPU, input.Spec.DiskGB); err != nil {
		s.cleanupContainer(ctx, containerName)
		return nil, withPhase(err, "configure")
	}
	if err := s.runtime.Start(ctx, containerName); err != nil {
		s.cleanupContainer(ctx, containerName)
		return nil, withPhase(err, "start")
	}

	record := &domain.VPS{
		ContainerName:     containerName,
		Hostname:          input.Hostname,
		Owner:             input.Owner,
		Status:            domain.VPSStatusRunning,
		Suspended:         false,
		SuspensionHistory: []domain.SuspensionEntry{},
		CreatedAt:         time.Now(),
		SharedWith:        []string{},
		OS:                osKey,
		Plan:              input.Plan,
	}
	if record.Hostname == "" {
		record.Hostname = containerName
	}
	record.ApplySpec(input.Spec)

	err := s.store.MutateVPS(func(vps map[string]*domain.VPS) error {
		if _, exists := vps[containerName]; exists {
			return util.NewConflict("container name already in use", map[string]any{"container_name": containerName})
		}
		vps[containerName] = record
		return nil
	})
	if err != nil {
		s.cleanupContainer(ctx, containerName)
		return nil, err
	}

	s.logger.Info("vps created",
		zap.String("container", containerName),
		zap.String("owner", input.Owner),
		zap.String("config", record.Config),
	)
	s.audit.Record(ctx, containerName, actor.Username, "create", map[string]any{
		"owner": input.Owner,
		"os":    osKey,
		"spec":  record.Config,
	})
	return record, nil
}

// Start starts a stopped instance. Starting an already running instance is a
// no-op success. Rejected with CONFLICT while suspended, regardless of actor.
func (s *LifecycleService) Start(ctx context.Context, actor Actor, containerName string) (*domain.VPS, error) {
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}
	if record.Suspended {
		return nil, util.NewConflict("vps is suspended", nil)
	}
	if record.Status == domain.VPSStatusRunning {
		return record, nil
	}

	if err := s.runtime.Start(ctx, containerName); err != nil {
		return nil, err
	}
	if err := s.setStatus(containerName, domain.VPSStatusRunning); err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusRunning

	s.audit.Record(ctx, containerName, actor.Username, "start", nil)
	return record, nil
}

// Stop stops a running instance. Stopping an already stopped instance is a
// no-op success. Rejected with CONFLICT while suspended.
func (s *LifecycleService) Stop(ctx context.Context, actor Actor, containerName string) (*domain.VPS, error) {
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}
	if record.Suspended {
		return nil, util.NewConflict("vps is suspended", nil)
	}
	if record.Status == domain.VPSStatusStopped {
		return record, nil
	}

	if err := s.runtime.Stop(ctx, containerName); err != nil {
		return nil, err
	}
	if err := s.setStatus(containerName, domain.VPSStatusStopped); err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusStopped

	s.invalidateSession(ctx, containerName)
	s.audit.Record(ctx, containerName, actor.Username, "stop", nil)
	return record, nil
}

// Restart restarts an instance. Rejected with CONFLICT while suspended.
func (s *LifecycleService) Restart(ctx context.Context, actor Actor, containerName string) (*domain.VPS, error) {
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}
	if record.Suspended {
		return nil, util.NewConflict("vps is suspended", nil)
	}

	if err := s.runtime.Restart(ctx, containerName); err != nil {
		return nil, err
	}
	if err := s.setStatus(containerName, domain.VPSStatusRunning); err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusRunning

	s.invalidateSession(ctx, containerName)
	s.audit.Record(ctx, containerName, actor.Username, "restart", nil)
	return record, nil
}

// Suspend force-stops the instance, flags it suspended and appends one
// suspension-history entry. Admin only; allowed from running or stopped.
func (s *LifecycleService) Suspend(ctx context.Context, actor Actor, containerName, reason string) (*domain.VPS, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(record.Status, domain.VPSStatusSuspended) {
		return nil, util.NewConflict("vps cannot be suspended in current state", map[string]any{"status": record.Status})
	}

	if record.Status == domain.VPSStatusRunning {
		if err := s.runtime.Stop(ctx, containerName); err != nil {
			return nil, err
		}
	}

	entry := domain.SuspensionEntry{Time: time.Now(), Reason: reason, By: actor.Username}
	err = s.store.MutateVPSRecord(containerName, func(v *domain.VPS) error {
		v.Status = domain.VPSStatusSuspended
		v.Suspended = true
		v.SuspensionHistory = append(v.SuspensionHistory, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusSuspended
	record.Suspended = true
	record.SuspensionHistory = append(record.SuspensionHistory, entry)

	s.invalidateSession(ctx, containerName)
	s.audit.Record(ctx, containerName, actor.Username, "suspend", map[string]any{"reason": reason})
	return record, nil
}

// Unsuspend lifts a suspension and starts the instance. Admin only; allowed
// only from suspended.
func (s *LifecycleService) Unsuspend(ctx context.Context, actor Actor, containerName string) (*domain.VPS, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}
	if !record.Suspended {
		return nil, util.NewConflict("vps is not suspended", nil)
	}

	if err := s.runtime.Start(ctx, containerName); err != nil {
		return nil, err
	}
	err = s.store.MutateVPSRecord(containerName, func(v *domain.VPS) error {
		v.Status = domain.VPSStatusRunning
		v.Suspended = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusRunning
	record.Suspended = false

	s.audit.Record(ctx, containerName, actor.Username, "unsuspend", nil)
	return record, nil
}

// Resize applies a new resource spec. A running instance is stopped,
// reconfigured and restarted so the limits apply atomically from the
// workload's perspective; a stopped one is reconfigured in place. On a
// mid-sequence failure the record keeps the last configuration that was
// fully applied, and the returned error names the failed phase. Host
// capacity is not verified beforehand.
func (s *LifecycleService) Resize(ctx context.Context, actor Actor, containerName string, spec domain.ResourceSpec) (*domain.VPS, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	if err := spec.Validate(); err != nil {
		return nil, util.NewValidationError(err.Error(), nil)
	}
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}

	wasRunning := record.Status == domain.VPSStatusRunning
	if wasRunning {
		if err := s.runtime.Stop(ctx, containerName); err != nil {
			return nil, withPhase(err, "stop")
		}
		if err := s.setStatus(containerName, domain.VPSStatusStopped); err != nil {
			return nil, err
		}
		record.Status = domain.VPSStatusStopped
	}

	if err := s.runtime.ConfigureResources(ctx, containerName, spec.RAMGB*1024, spec.CPU, spec.DiskGB); err != nil {
		return nil, withPhase(err, "configure")
	}
	err = s.store.MutateVPSRecord(containerName, func(v *domain.VPS) error {
		v.ApplySpec(spec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	record.ApplySpec(spec)

	if wasRunning {
		if err := s.runtime.Start(ctx, containerName); err != nil {
			return nil, withPhase(err, "restart")
		}
		if err := s.setStatus(containerName, domain.VPSStatusRunning); err != nil {
			return nil, err
		}
		record.Status = domain.VPSStatusRunning
	}

	s.audit.Record(ctx, containerName, actor.Username, "resize", map[string]any{"spec": record.Config})
	return record, nil
}

// Reinstall destroys the container and recreates it under the same name with
// the same resource spec and a fresh image. Suspension history survives, disk
// contents do not. Rejected while suspended: completing it would start the
// instance behind the suspension.
func (s *LifecycleService) Reinstall(ctx context.Context, actor Actor, containerName, osKey string) (*domain.VPS, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	unlock := s.lockContainer(containerName)
	defer unlock()

	record, err := s.resolve(containerName, actor)
	if err != nil {
		return nil, err
	}
	if record.Suspended {
		return nil, util.NewConflict("vps is suspended", nil)
	}
	spec, err := record.Spec()
	if err != nil {
		return nil, util.NewValidationError(fmt.Sprintf("corrupt resource spec: %v", err), nil)
	}
	newOSKey, image := domain.ImageForOS(osKey)

	if err := s.runtime.Delete(ctx, containerName); err != nil {
		return nil, withPhase(err, "delete")
	}
	s.invalidateSession(ctx, containerName)
	if err := s.setStatus(containerName, domain.VPSStatusStopped); err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusStopped

	if err := s.runtime.Create(ctx, image, containerName); err != nil {
		return nil, withPhase(err, "create")
	}
	if err := s.runtime.ConfigureResources(ctx, containerName, spec.RAMGB*1024, spec.CPU, spec.DiskGB); err != nil {
		return nil, withPhase(err, "configure")
	}
	if err := s.runtime.Start(ctx, containerName); err != nil {
		return nil, withPhase(err, "start")
	}

	err = s.store.MutateVPSRecord(containerName, func(v *domain.VPS) error {
		v.Status = domain.VPSStatusRunning
		v.OS = newOSKey
		return nil
	})
	if err != nil {
		return nil, err
	}
	record.Status = domain.VPSStatusRunning
	record.OS = newOSKey

	s.audit.Record(ctx, containerName, actor.Username, "reinstall", map[string]any{"os": newOSKey})
	return record, nil
}

// Delete tears down the backing container and then removes the record. If the
// container delete fails the record is kept, so a live container is never
// orphaned from the catalog.
func (s *LifecycleService) Delete(ctx context.Context, actor Actor, containerName string) error {
	if !actor.Admin {
		return util.NewForbidden("admin access required")
	}
	unlock := s.lockContainer(containerName)
	defer unlock()

	if _, err := s.resolve(containerName, actor); err != nil {
		return err
	}

	if err := s.runtime.Delete(ctx, containerName); err != nil {
		return err
	}
	err := s.store.MutateVPS(func(vps map[string]*domain.VPS) error {
		delete(vps, containerName)
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateSession(ctx, containerName)
	s.audit.Record(ctx, containerName, actor.Username, "delete", nil)
	return nil
}

// DeleteAllForOwner tears down every instance of a user, best-effort. Used
// when an account is removed. Failures are logged and skipped so one stuck
// container does not block the rest.
func (s *LifecycleService) DeleteAllForOwner(ctx context.Context, actor Actor, owner string) {
	for _, record := range s.store.ListVPSByOwner(owner) {
		if err := s.Delete(ctx, actor, record.ContainerName); err != nil {
			s.logger.Warn("failed to delete vps for removed user",
				zap.String("container", record.ContainerName),
				zap.String("owner", owner),
				zap.Error(err),
			)
		}
	}
}

// MarkAllStopped reconciles the catalog after a host-wide force stop: every
// running record is flipped to stopped and its cached shell session dropped.
// Each record is visited under its container lock, so a transition that was
// in flight when the stop landed cannot commit running after the sweep has
// passed it. Suspended records keep their status. Returns the container
// names that were flipped.
func (s *LifecycleService) MarkAllStopped(ctx context.Context) []string {
	var swept []string
	for name := range s.store.ListVPS() {
		unlock := s.lockContainer(name)
		flipped := false
		err := s.store.MutateVPSRecord(name, func(v *domain.VPS) error {
			if v.Status == domain.VPSStatusRunning {
				v.Status = domain.VPSStatusStopped
				flipped = true
			}
			return nil
		})
		unlock()
		if err != nil {
			// Deleted while sweeping; nothing left to reconcile.
			if util.IsCode(err, "NOT_FOUND") {
				continue
			}
			s.logger.Error("host stop reconcile failed",
				zap.String("container", name),
				zap.Error(err),
			)
			continue
		}
		if !flipped {
			continue
		}
		s.invalidateSession(ctx, name)
		s.audit.Record(ctx, name, "governor", "force-stop", nil)
		swept = append(swept, name)
	}
	return swept
}

// Stats returns a live runtime snapshot for the instance.
func (s *LifecycleService) Stats(ctx context.Context, actor Actor, containerName string) (*InstanceStats, error) {
	if _, err := s.resolve(containerName, actor); err != nil {
		return nil, err
	}
	return &InstanceStats{
		Status: s.runtime.Info(ctx, containerName),
		CPU:    s.runtime.CPUUsage(ctx, containerName),
		Memory: s.runtime.MemUsage(ctx, containerName),
		Disk:   s.runtime.DiskUsage(ctx, containerName),
	}, nil
}

// Exec runs a command inside the instance under an explicit timeout.
func (s *LifecycleService) Exec(ctx context.Context, actor Actor, containerName, command string, timeout time.Duration) (string, error) {
	if !actor.Admin {
		return "", util.NewForbidden("admin access required")
	}
	if command == "" {
		return "", util.NewValidationError("no command provided", nil)
	}
	if _, err := s.resolve(containerName, actor); err != nil {
		return "", err
	}
	return s.runtime.Exec(ctx, containerName, command, timeout)
}

// ListForOwner returns the records owned by the given user.
func (s *LifecycleService) ListForOwner(owner string) []*domain.VPS {
	return s.store.ListVPSByOwner(owner)
}

// ListAll returns every record, keyed by container name.
func (s *LifecycleService) ListAll() map[string]*domain.VPS {
	return s.store.ListVPS()
}

func (s *LifecycleService) setStatus(containerName string, status domain.VPSStatus) error {
	return s.store.MutateVPSRecord(containerName, func(v *domain.VPS) error {
		v.Status = status
		return nil
	})
}

// invalidateSession drops any cached shell connection for the container, so
// a connection string for a dead session is never handed back out.
func (s *LifecycleService) invalidateSession(ctx context.Context, containerName string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Delete(ctx, containerName); err != nil {
		s.logger.Warn("shell session invalidation failed",
			zap.String("container", containerName),
			zap.Error(err),
		)
	}
}

func (s *LifecycleService) cleanupContainer(ctx context.Context, containerName string) {
	if err := s.runtime.Delete(ctx, containerName); err != nil {
		s.logger.Warn("cleanup of partially created container failed",
			zap.String("container", containerName),
			zap.Error(err),
		)
	}
}

// nextContainerName picks a free svm-prefixed name for a new instance.
func (s *LifecycleService) nextContainerName(owner, hostname string) string {
	base := fmt.Sprintf("svm-vps-%s", owner)
	if hostname != "" {
		base = fmt.Sprintf("svm-%s", hostname)
	}
	existing := s.store.ListVPS()
	for n := len(s.store.ListVPSByOwner(owner)) + 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// withPhase tags a multi-step transition error with the phase that failed.
func withPhase(err error, phase string) error {
	domainErr := util.ToDomainError(err)
	if domainErr.Details == nil {
		domainErr.Details = map[string]any{}
	}
	domainErr.Details["phase"] = phase
	return domainErr
}
