package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LifecycleEvent is one persisted audit entry for a lifecycle transition.
type LifecycleEvent struct {
	ID            int64
	ContainerName string
	Actor         string
	Action        string
	Detail        map[string]any
	CreatedAt     time.Time
}

// LifecycleEventRepository stores lifecycle audit entries.
type LifecycleEventRepository interface {
	Create(ctx context.Context, event *LifecycleEvent) error
	ListByContainer(ctx context.Context, containerName string, limit int) ([]LifecycleEvent, error)
}

type lifecycleEventRepository struct {
	pool *pgxpool.Pool
}

// NewLifecycleEventRepository builds repository.
func NewLifecycleEventRepository(pool *pgxpool.Pool) LifecycleEventRepository {
	return &lifecycleEventRepository{pool: pool}
}

func (r *lifecycleEventRepository) Create(ctx context.Context, event *LifecycleEvent) error {
	const query = `
        INSERT INTO lifecycle_events (container_name, actor, action, detail)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		event.ContainerName,
		event.Actor,
		event.Action,
		event.Detail,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *lifecycleEventRepository) ListByContainer(ctx context.Context, containerName string, limit int) ([]LifecycleEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, container_name, actor, action, detail, created_at
        FROM lifecycle_events WHERE container_name=$1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, containerName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LifecycleEvent
	for rows.Next() {
		var event LifecycleEvent
		if err := rows.Scan(
			&event.ID,
			&event.ContainerName,
			&event.Actor,
			&event.Action,
			&event.Detail,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
