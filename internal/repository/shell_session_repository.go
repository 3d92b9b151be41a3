package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const shellSessionKeyPrefix = "shell:session:"

// ShellSessionRepository caches brokered shell connection strings per
// container so repeated requests reuse a live session until the TTL lapses.
type ShellSessionRepository interface {
	Get(ctx context.Context, containerName string) (string, bool, error)
	Put(ctx context.Context, containerName, connection string, ttl time.Duration) error
	Delete(ctx context.Context, containerName string) error
}

type redisShellSessionRepository struct {
	client *redis.Client
}

// NewShellSessionRepository builds a redis-backed cache. A nil client yields
// a cache that never hits, which keeps the broker functional without Redis.
func NewShellSessionRepository(client *redis.Client) ShellSessionRepository {
	return &redisShellSessionRepository{client: client}
}

func (r *redisShellSessionRepository) Get(ctx context.Context, containerName string) (string, bool, error) {
	if r.client == nil {
		return "", false, nil
	}
	val, err := r.client.Get(ctx, shellSessionKeyPrefix+containerName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (r *redisShellSessionRepository) Put(ctx context.Context, containerName, connection string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	return r.client.Set(ctx, shellSessionKeyPrefix+containerName, connection, ttl).Err()
}

func (r *redisShellSessionRepository) Delete(ctx context.Context, containerName string) error {
	if r.client == nil {
		return nil
	}
	return r.client.Del(ctx, shellSessionKeyPrefix+containerName).Err()
}
