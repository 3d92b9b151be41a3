package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/config"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, containerName string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[containerName]
	return val, ok, nil
}

func (c *memoryCache) Put(ctx context.Context, containerName, connection string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[containerName] = connection
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, containerName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, containerName)
	return nil
}

func newTestShell(t *testing.T, adapter *fakeAdapter, cache SessionCache) (*ShellService, *store.FileStore) {
	t.Helper()
	fileStore, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fileStore.MutateVPS(func(vps map[string]*domain.VPS) error {
		vps["svm-web-1"] = &domain.VPS{ContainerName: "svm-web-1", Owner: "alice", Status: domain.VPSStatusRunning}
		return nil
	}))

	svc := NewShellService(ShellDependencies{
		Store:   fileStore,
		Runtime: adapter,
		Cache:   cache,
		Shell:   config.ShellConfig{SettleSeconds: 0, InstallTimeoutSeconds: 1, SessionTTLMinutes: 10},
		Logger:  zap.NewNop(),
	})
	return svc, fileStore
}

func TestShellBrokersNewSession(t *testing.T) {
	adapter := newFakeAdapter()
	var commands []string
	adapter.execFn = func(name, command string) (string, error) {
		commands = append(commands, command)
		if strings.Contains(command, "display") {
			return "ssh abc123@nyc1.tmate.io\n", nil
		}
		return "", nil
	}
	cache := newMemoryCache()
	svc, _ := newTestShell(t, adapter, cache)

	connection, err := svc.OpenSession(context.Background(), Actor{Username: "alice"}, "svm-web-1")
	require.NoError(t, err)
	require.Equal(t, "ssh abc123@nyc1.tmate.io", connection)

	// Helper probe, session start, connection query.
	require.Equal(t, "which tmate", commands[0])
	require.Contains(t, commands[1], "new-session -d")
	require.Contains(t, commands[len(commands)-1], "display -p")

	cached, hit, err := cache.Get(context.Background(), "svm-web-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, connection, cached)
}

func TestShellInstallsHelperWhenMissing(t *testing.T) {
	adapter := newFakeAdapter()
	var commands []string
	adapter.execFn = func(name, command string) (string, error) {
		commands = append(commands, command)
		if command == "which tmate" {
			return "", util.NewRuntimeCommandFailed("not found", nil)
		}
		if strings.Contains(command, "display") {
			return "ssh xyz@tmate.io", nil
		}
		return "", nil
	}
	svc, _ := newTestShell(t, adapter, nil)

	_, err := svc.OpenSession(context.Background(), Actor{Username: "alice"}, "svm-web-1")
	require.NoError(t, err)
	require.Contains(t, commands, "sudo apt-get update -y")
	require.Contains(t, commands, "sudo apt-get install tmate -y")
}

func TestShellReusesCachedSession(t *testing.T) {
	adapter := newFakeAdapter()
	execCalls := 0
	adapter.execFn = func(name, command string) (string, error) {
		execCalls++
		return "", nil
	}
	cache := newMemoryCache()
	require.NoError(t, cache.Put(context.Background(), "svm-web-1", "ssh cached@tmate.io", time.Minute))
	svc, _ := newTestShell(t, adapter, cache)

	connection, err := svc.OpenSession(context.Background(), Actor{Username: "alice"}, "svm-web-1")
	require.NoError(t, err)
	require.Equal(t, "ssh cached@tmate.io", connection)
	require.Zero(t, execCalls)
}

func TestShellEmptyConnectionIsUnavailable(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.execFn = func(name, command string) (string, error) {
		if strings.Contains(command, "display") {
			return "   \n", nil
		}
		return "", nil
	}
	svc, _ := newTestShell(t, adapter, nil)

	_, err := svc.OpenSession(context.Background(), Actor{Username: "alice"}, "svm-web-1")
	require.True(t, util.IsCode(err, "SHELL_SESSION_UNAVAILABLE"))
}

func TestShellScopesAndSuspension(t *testing.T) {
	adapter := newFakeAdapter()
	svc, fileStore := newTestShell(t, adapter, nil)

	_, err := svc.OpenSession(context.Background(), Actor{Username: "bob"}, "svm-web-1")
	require.True(t, util.IsCode(err, "NOT_FOUND"))

	require.NoError(t, fileStore.MutateVPSRecord("svm-web-1", func(v *domain.VPS) error {
		v.Status = domain.VPSStatusSuspended
		v.Suspended = true
		return nil
	}))
	_, err = svc.OpenSession(context.Background(), Actor{Username: "alice"}, "svm-web-1")
	require.True(t, util.IsCode(err, "CONFLICT"))
}
