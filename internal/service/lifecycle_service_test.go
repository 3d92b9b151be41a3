package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/audit"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/runtime"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

// fakeAdapter records runtime calls and fails on demand per operation.
type fakeAdapter struct {
	mu      sync.Mutex
	calls   []string
	failOn  map[string]error
	execFn  func(name, command string) (string, error)
	status  runtime.Status
	stopAll int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{failOn: map[string]error{}, status: runtime.StatusRunning}
}

func (f *fakeAdapter) record(op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+name)
	return f.failOn[op]
}

func (f *fakeAdapter) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == op || len(call) > len(op) && call[:len(op)+1] == op+":" {
			count++
		}
	}
	return count
}

func (f *fakeAdapter) Create(ctx context.Context, image, name string) error {
	return f.record("create", name)
}

func (f *fakeAdapter) ConfigureResources(ctx context.Context, name string, ramMB, cpu, diskGB int) error {
	return f.record("configure", fmt.Sprintf("%s:%d:%d:%d", name, ramMB, cpu, diskGB))
}

func (f *fakeAdapter) Start(ctx context.Context, name string) error   { return f.record("start", name) }
func (f *fakeAdapter) Stop(ctx context.Context, name string) error    { return f.record("stop", name) }
func (f *fakeAdapter) Restart(ctx context.Context, name string) error { return f.record("restart", name) }
func (f *fakeAdapter) Delete(ctx context.Context, name string) error  { return f.record("delete", name) }

func (f *fakeAdapter) ResizeDisk(ctx context.Context, name string, diskGB int) error {
	return f.record("resize-disk", name)
}

func (f *fakeAdapter) StopAll(ctx context.Context) error {
	f.mu.Lock()
	f.stopAll++
	err := f.failOn["stop-all"]
	f.mu.Unlock()
	return err
}

func (f *fakeAdapter) Exec(ctx context.Context, name, command string, timeout time.Duration) (string, error) {
	if f.execFn != nil {
		return f.execFn(name, command)
	}
	if err := f.record("exec", name); err != nil {
		return "", err
	}
	return "", nil
}

func (f *fakeAdapter) Info(ctx context.Context, name string) runtime.Status { return f.status }
func (f *fakeAdapter) CPUUsage(ctx context.Context, name string) runtime.Metric {
	return runtime.Metric{Value: "5.0%", Known: true}
}
func (f *fakeAdapter) MemUsage(ctx context.Context, name string) runtime.Metric {
	return runtime.UnknownMetric()
}
func (f *fakeAdapter) DiskUsage(ctx context.Context, name string) runtime.Metric {
	return runtime.UnknownMetric()
}

var adminActor = Actor{Username: "admin", Admin: true}

func noAudit() audit.Recorder {
	return audit.NewRecorder(nil, zap.NewNop())
}

func newTestLifecycle(t *testing.T) (*LifecycleService, *store.FileStore, *fakeAdapter) {
	t.Helper()
	fileStore, err := store.Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fileStore.MutateUsers(func(users map[string]*domain.User) error {
		users["alice"] = &domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}
		users["admin"] = &domain.User{Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin}
		return nil
	}))

	adapter := newFakeAdapter()
	svc := NewLifecycleService(LifecycleDependencies{
		Store:   fileStore,
		Runtime: adapter,
		Audit:   noAudit(),
		Logger:  zap.NewNop(),
	})
	return svc, fileStore, adapter
}

func mustCreate(t *testing.T, svc *LifecycleService) *domain.VPS {
	t.Helper()
	record, err := svc.Create(context.Background(), adminActor, CreateInput{
		Owner: "alice",
		Spec:  domain.ResourceSpec{RAMGB: 4, CPU: 2, DiskGB: 50},
		OSKey: "ubuntu2204",
	})
	require.NoError(t, err)
	return record
}

func TestCreateProvisionsRunningRecord(t *testing.T) {
	svc, fileStore, adapter := newTestLifecycle(t)

	record := mustCreate(t, svc)
	require.Equal(t, domain.VPSStatusRunning, record.Status)
	require.False(t, record.Suspended)
	require.Equal(t, "4GB", record.RAM)
	require.Equal(t, 2, record.CPU)
	require.Equal(t, "50GB", record.Storage)
	require.Equal(t, "ubuntu2204", record.OS)

	persisted, ok := fileStore.GetVPS(record.ContainerName)
	require.True(t, ok)
	require.Equal(t, domain.VPSStatusRunning, persisted.Status)

	// init, then limits, then start.
	require.Equal(t, 1, adapter.callCount("create"))
	require.Equal(t, 1, adapter.callCount("configure"))
	require.Equal(t, 1, adapter.callCount("start"))
}

func TestCreateFailureLeavesNoRecord(t *testing.T) {
	svc, fileStore, adapter := newTestLifecycle(t)
	adapter.failOn["start"] = util.NewRuntimeCommandFailed("boot failed", nil)

	_, err := svc.Create(context.Background(), adminActor, CreateInput{
		Owner: "alice",
		Spec:  domain.ResourceSpec{RAMGB: 4, CPU: 2, DiskGB: 50},
	})
	require.True(t, util.IsCode(err, "RUNTIME_COMMAND_FAILED"))
	require.Equal(t, "start", util.ToDomainError(err).Details["phase"])

	require.Empty(t, fileStore.ListVPS())
	// The partially created container is torn down.
	require.Equal(t, 1, adapter.callCount("delete"))
}

func TestCreateRejectsUnknownOwner(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	_, err := svc.Create(context.Background(), adminActor, CreateInput{
		Owner: "nobody",
		Spec:  domain.ResourceSpec{RAMGB: 4, CPU: 2, DiskGB: 50},
	})
	require.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestCreateRejectsInvalidSpec(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	_, err := svc.Create(context.Background(), adminActor, CreateInput{
		Owner: "alice",
		Spec:  domain.ResourceSpec{RAMGB: 0, CPU: 2, DiskGB: 50},
	})
	require.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestStartIsIdempotentWhenRunning(t *testing.T) {
	svc, _, adapter := newTestLifecycle(t)
	record := mustCreate(t, svc)
	startsAfterCreate := adapter.callCount("start")

	again, err := svc.Start(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	require.Equal(t, domain.VPSStatusRunning, again.Status)
	// No extra runtime call for a no-op start.
	require.Equal(t, startsAfterCreate, adapter.callCount("start"))
}

func TestStopThenStartRoundTrip(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)

	stopped, err := svc.Stop(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	require.Equal(t, domain.VPSStatusStopped, stopped.Status)

	persisted, _ := fileStore.GetVPS(record.ContainerName)
	require.Equal(t, domain.VPSStatusStopped, persisted.Status)

	started, err := svc.Start(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	require.Equal(t, domain.VPSStatusRunning, started.Status)
}

func TestOwnerScopedVisibility(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)

	require.NoError(t, fileStore.MutateUsers(func(users map[string]*domain.User) error {
		users["bob"] = &domain.User{Username: "bob", Role: domain.RoleUser}
		return nil
	}))

	// A non-owner learns nothing beyond NOT_FOUND.
	_, err := svc.Start(context.Background(), Actor{Username: "bob"}, record.ContainerName)
	require.True(t, util.IsCode(err, "NOT_FOUND"))

	_, err = svc.Start(context.Background(), Actor{Username: "alice"}, record.ContainerName)
	require.NoError(t, err)
}

func TestSuspendInvariantAndHistory(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)

	suspended, err := svc.Suspend(context.Background(), adminActor, record.ContainerName, "abuse report")
	require.NoError(t, err)
	require.Equal(t, domain.VPSStatusSuspended, suspended.Status)
	require.True(t, suspended.Suspended)
	require.Len(t, suspended.SuspensionHistory, 1)
	require.Equal(t, "abuse report", suspended.SuspensionHistory[0].Reason)
	require.Equal(t, "admin", suspended.SuspensionHistory[0].By)

	persisted, _ := fileStore.GetVPS(record.ContainerName)
	require.True(t, persisted.Suspended)
	require.Equal(t, domain.VPSStatusSuspended, persisted.Status)

	// Suspending again is a conflict and must not grow the history.
	_, err = svc.Suspend(context.Background(), adminActor, record.ContainerName, "again")
	require.True(t, util.IsCode(err, "CONFLICT"))
	persisted, _ = fileStore.GetVPS(record.ContainerName)
	require.Len(t, persisted.SuspensionHistory, 1)
}

func TestSuspendedBlocksUserControls(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)
	_, err := svc.Suspend(context.Background(), adminActor, record.ContainerName, "")
	require.NoError(t, err)

	for _, op := range []func() error{
		func() error { _, err := svc.Start(context.Background(), adminActor, record.ContainerName); return err },
		func() error { _, err := svc.Stop(context.Background(), adminActor, record.ContainerName); return err },
		func() error {
			_, err := svc.Restart(context.Background(), adminActor, record.ContainerName)
			return err
		},
		func() error {
			_, err := svc.Reinstall(context.Background(), adminActor, record.ContainerName, "")
			return err
		},
	} {
		require.True(t, util.IsCode(op(), "CONFLICT"))
	}
}

func TestUnsuspendRestores(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)
	_, err := svc.Suspend(context.Background(), adminActor, record.ContainerName, "payment")
	require.NoError(t, err)

	restored, err := svc.Unsuspend(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	require.Equal(t, domain.VPSStatusRunning, restored.Status)
	require.False(t, restored.Suspended)
	// History is an append-only log; lifting a suspension keeps it.
	require.Len(t, restored.SuspensionHistory, 1)

	_, err = svc.Unsuspend(context.Background(), adminActor, record.ContainerName)
	require.True(t, util.IsCode(err, "CONFLICT"))
}

func TestResizeRestartsRunningInstance(t *testing.T) {
	svc, _, adapter := newTestLifecycle(t)
	record := mustCreate(t, svc)

	resized, err := svc.Resize(context.Background(), adminActor, record.ContainerName, domain.ResourceSpec{RAMGB: 8, CPU: 4, DiskGB: 100})
	require.NoError(t, err)
	require.Equal(t, "8GB", resized.RAM)
	require.Equal(t, 4, resized.CPU)
	require.Equal(t, "100GB", resized.Storage)
	require.Equal(t, domain.VPSStatusRunning, resized.Status)
	require.Equal(t, 1, adapter.callCount("stop"))
}

func TestResizeFailurePersistsLastAppliedConfig(t *testing.T) {
	svc, fileStore, adapter := newTestLifecycle(t)
	record := mustCreate(t, svc)
	adapter.failOn["configure"] = util.NewRuntimeCommandFailed("limit rejected", nil)

	_, err := svc.Resize(context.Background(), adminActor, record.ContainerName, domain.ResourceSpec{RAMGB: 8, CPU: 4, DiskGB: 100})
	require.True(t, util.IsCode(err, "RUNTIME_COMMAND_FAILED"))
	require.Equal(t, "configure", util.ToDomainError(err).Details["phase"])

	// Old spec survives; the instance stays stopped where the sequence halted.
	persisted, _ := fileStore.GetVPS(record.ContainerName)
	require.Equal(t, "4GB", persisted.RAM)
	require.Equal(t, domain.VPSStatusStopped, persisted.Status)
}

func TestReinstallKeepsIdentityAndHistory(t *testing.T) {
	svc, _, adapter := newTestLifecycle(t)
	record := mustCreate(t, svc)
	_, err := svc.Suspend(context.Background(), adminActor, record.ContainerName, "ticket 42")
	require.NoError(t, err)
	_, err = svc.Unsuspend(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)

	reinstalled, err := svc.Reinstall(context.Background(), adminActor, record.ContainerName, "debian12")
	require.NoError(t, err)
	require.Equal(t, record.ContainerName, reinstalled.ContainerName)
	require.Equal(t, "debian12", reinstalled.OS)
	require.Equal(t, record.RAM, reinstalled.RAM)
	require.Len(t, reinstalled.SuspensionHistory, 1)
	require.Equal(t, domain.VPSStatusRunning, reinstalled.Status)
	require.Equal(t, 1, adapter.callCount("delete"))
	require.Equal(t, 2, adapter.callCount("create"))
}

func TestDeleteFailureKeepsRecord(t *testing.T) {
	svc, fileStore, adapter := newTestLifecycle(t)
	record := mustCreate(t, svc)
	adapter.failOn["delete"] = util.NewRuntimeTimeout("delete timed out")

	err := svc.Delete(context.Background(), adminActor, record.ContainerName)
	require.True(t, util.IsCode(err, "RUNTIME_TIMEOUT"))

	_, ok := fileStore.GetVPS(record.ContainerName)
	require.True(t, ok)
}

func TestDeleteRemovesRecord(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)

	require.NoError(t, svc.Delete(context.Background(), adminActor, record.ContainerName))
	_, ok := fileStore.GetVPS(record.ContainerName)
	require.False(t, ok)
}

func TestAdminOnlyOperations(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)
	user := Actor{Username: "alice"}

	_, err := svc.Suspend(context.Background(), user, record.ContainerName, "")
	require.True(t, util.IsCode(err, "FORBIDDEN"))
	_, err = svc.Resize(context.Background(), user, record.ContainerName, domain.ResourceSpec{RAMGB: 8, CPU: 4, DiskGB: 100})
	require.True(t, util.IsCode(err, "FORBIDDEN"))
	err = svc.Delete(context.Background(), user, record.ContainerName)
	require.True(t, util.IsCode(err, "FORBIDDEN"))
}

func TestExecValidatesCommand(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)

	_, err := svc.Exec(context.Background(), adminActor, record.ContainerName, "", time.Second)
	require.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestConcurrentResizeAndDeleteConverge(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)

	var wg sync.WaitGroup
	var resizeErr, deleteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, resizeErr = svc.Resize(context.Background(), adminActor, record.ContainerName, domain.ResourceSpec{RAMGB: 8, CPU: 4, DiskGB: 100})
	}()
	go func() {
		defer wg.Done()
		deleteErr = svc.Delete(context.Background(), adminActor, record.ContainerName)
	}()
	wg.Wait()

	// The keyed lock serializes the two transitions: either the resize ran
	// first and the delete removed the resized instance, or the delete won
	// and the resize found nothing. Never a torn in-between state.
	require.NoError(t, deleteErr)
	if resizeErr != nil {
		require.True(t, util.IsCode(resizeErr, "NOT_FOUND"))
	}
	_, ok := fileStore.GetVPS(record.ContainerName)
	require.False(t, ok)
}

func TestHostSweepWaitsForInFlightStart(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)
	_, err := svc.Stop(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)

	// Simulate a start holding the container lock when the sweep arrives:
	// it must block until the start commits, then still flip the record.
	unlock := svc.lockContainer(record.ContainerName)
	done := make(chan []string, 1)
	go func() {
		done <- svc.MarkAllStopped(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("sweep passed a container with a transition in flight")
	default:
	}

	require.NoError(t, svc.setStatus(record.ContainerName, domain.VPSStatusRunning))
	unlock()

	select {
	case swept := <-done:
		require.Contains(t, swept, record.ContainerName)
	case <-time.After(time.Second):
		t.Fatal("sweep did not finish after the lock was released")
	}
	persisted, _ := fileStore.GetVPS(record.ContainerName)
	require.Equal(t, domain.VPSStatusStopped, persisted.Status)
}

func TestHostSweepLeavesSuspendedAndStopped(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	record := mustCreate(t, svc)
	_, err := svc.Suspend(context.Background(), adminActor, record.ContainerName, "abuse")
	require.NoError(t, err)

	swept := svc.MarkAllStopped(context.Background())
	require.Empty(t, swept)

	persisted, _ := fileStore.GetVPS(record.ContainerName)
	require.Equal(t, domain.VPSStatusSuspended, persisted.Status)
	require.True(t, persisted.Suspended)
}

func TestTransitionsInvalidateShellSession(t *testing.T) {
	svc, _, _ := newTestLifecycle(t)
	cache := newMemoryCache()
	svc.sessions = cache
	record := mustCreate(t, svc)

	reput := func() {
		require.NoError(t, cache.Put(context.Background(), record.ContainerName, "ssh live@tmate.io", time.Minute))
	}
	assertDropped := func() {
		t.Helper()
		_, hit, err := cache.Get(context.Background(), record.ContainerName)
		require.NoError(t, err)
		require.False(t, hit)
	}

	reput()
	_, err := svc.Stop(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	assertDropped()

	reput()
	_, err = svc.Suspend(context.Background(), adminActor, record.ContainerName, "")
	require.NoError(t, err)
	assertDropped()

	_, err = svc.Unsuspend(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	reput()
	require.NoError(t, svc.Delete(context.Background(), adminActor, record.ContainerName))
	assertDropped()
}

func TestStatsDegradeToUnknown(t *testing.T) {
	svc, _, adapter := newTestLifecycle(t)
	record := mustCreate(t, svc)
	adapter.status = runtime.StatusUnknown

	stats, err := svc.Stats(context.Background(), adminActor, record.ContainerName)
	require.NoError(t, err)
	require.Equal(t, runtime.StatusUnknown, stats.Status)
	require.Equal(t, "Unknown", stats.Memory.String())
	require.Equal(t, "5.0%", stats.CPU.String())
}
