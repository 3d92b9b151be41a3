package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/config"
	"github.com/spec-kit/vps-service/internal/runtime"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

// SessionCache caches live shell connection strings per container.
type SessionCache interface {
	Get(ctx context.Context, containerName string) (string, bool, error)
	Put(ctx context.Context, containerName, connection string, ttl time.Duration) error
	Delete(ctx context.Context, containerName string) error
}

// ShellService brokers short-lived terminal-sharing sessions inside a target
// container: install the helper on demand, start a uniquely named session,
// wait a fixed settle time, then query the connection string. Cache failures
// only cost a fresh session, never the request.
type ShellService struct {
	store   *store.FileStore
	runtime runtime.Adapter
	cache   SessionCache
	cfg     config.ShellConfig
	logger  *zap.Logger
}

// ShellDependencies bundles collaborators for the shell broker.
type ShellDependencies struct {
	Store   *store.FileStore
	Runtime runtime.Adapter
	Cache   SessionCache
	Shell   config.ShellConfig
	Logger  *zap.Logger
}

// NewShellService constructs the broker.
func NewShellService(deps ShellDependencies) *ShellService {
	return &ShellService{
		store:   deps.Store,
		runtime: deps.Runtime,
		cache:   deps.Cache,
		cfg:     deps.Shell,
		logger:  deps.Logger,
	}
}

// OpenSession returns an SSH connection string for the container, reusing a
// cached live session when one exists.
func (s *ShellService) OpenSession(ctx context.Context, actor Actor, containerName string) (string, error) {
	record, ok := s.store.GetVPS(containerName)
	if !ok || (!actor.Admin && record.Owner != actor.Username) {
		return "", util.NewNotFound("vps", map[string]any{"container_name": containerName})
	}
	if record.Suspended {
		return "", util.NewConflict("vps is suspended", nil)
	}

	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, containerName); err != nil {
			s.logger.Warn("shell session cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	if err := s.ensureHelperInstalled(ctx, containerName); err != nil {
		return "", err
	}

	sessionName := fmt.Sprintf("svm-session-%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	socket := fmt.Sprintf("/tmp/%s.sock", sessionName)

	if _, err := s.runtime.Exec(ctx, containerName, fmt.Sprintf("tmate -S %s new-session -d", socket), s.cfg.InstallTimeout()); err != nil {
		return "", err
	}

	time.Sleep(s.cfg.SettleWait())

	connection, err := s.runtime.Exec(ctx, containerName, fmt.Sprintf("tmate -S %s display -p '#{tmate_ssh}'", socket), s.cfg.InstallTimeout())
	if err != nil || strings.TrimSpace(connection) == "" {
		return "", util.NewShellSessionUnavailable("failed to generate shell connection")
	}
	connection = strings.TrimSpace(connection)

	if s.cache != nil {
		if err := s.cache.Put(ctx, containerName, connection, s.cfg.SessionTTL()); err != nil {
			s.logger.Warn("shell session cache write failed", zap.Error(err))
		}
	}
	return connection, nil
}

// ensureHelperInstalled installs tmate when absent. A pre-existing install is
// detected with `which` and left alone.
func (s *ShellService) ensureHelperInstalled(ctx context.Context, containerName string) error {
	if _, err := s.runtime.Exec(ctx, containerName, "which tmate", s.cfg.InstallTimeout()); err == nil {
		return nil
	}
	if _, err := s.runtime.Exec(ctx, containerName, "sudo apt-get update -y", s.cfg.InstallTimeout()); err != nil {
		return err
	}
	if _, err := s.runtime.Exec(ctx, containerName, "sudo apt-get install tmate -y", s.cfg.InstallTimeout()); err != nil {
		return err
	}
	return nil
}
