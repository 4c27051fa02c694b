package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RequestGuard remembers idempotency keys so a retried request is not
// executed twice.
type RequestGuard interface {
	// Seen records key and reports whether it was already recorded.
	Seen(ctx context.Context, key string) (bool, error)
	// Release forgets key so a rejected request can be retried with it.
	Release(ctx context.Context, key string) error
}

// NoopRequestGuard never remembers anything.
type NoopRequestGuard struct{}

func (NoopRequestGuard) Seen(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (NoopRequestGuard) Release(_ context.Context, _ string) error {
	return nil
}

const idempotencyPrefix = "kedai:idem:"

type RedisRequestGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRequestGuard(client *redis.Client, ttl time.Duration) *RedisRequestGuard {
	return &RedisRequestGuard{client: client, ttl: ttl}
}

func (g *RedisRequestGuard) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, idempotencyPrefix+key, "1", g.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (g *RedisRequestGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, idempotencyPrefix+key).Err()
}
