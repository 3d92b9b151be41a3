// Package audit records completed lifecycle transitions. Recording is
// best-effort: a failure is logged and never surfaced to the caller, so the
// audit trail can never fail a control operation.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/repository"
)

// Recorder accepts lifecycle audit events.
type Recorder interface {
	Record(ctx context.Context, containerName, actor, action string, detail map[string]any)
}

type recorder struct {
	events repository.LifecycleEventRepository
	logger *zap.Logger
}

// NewRecorder builds a recorder over the event repository. A nil repository
// yields a recorder that drops everything, for deployments without Postgres.
func NewRecorder(events repository.LifecycleEventRepository, logger *zap.Logger) Recorder {
	return &recorder{events: events, logger: logger}
}

func (r *recorder) Record(ctx context.Context, containerName, actor, action string, detail map[string]any) {
	if r.events == nil {
		return
	}
	if detail == nil {
		detail = map[string]any{}
	}
	event := &repository.LifecycleEvent{
		ContainerName: containerName,
		Actor:         actor,
		Action:        action,
		Detail:        detail,
	}
	if err := r.events.Create(ctx, event); err != nil {
		r.logger.Warn("audit record failed",
			zap.String("container", containerName),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
