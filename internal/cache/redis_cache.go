package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kedai-pos/api/internal/database"
)

const (
	availabilityKey    = "kedai:menu_availability"
	availabilityGenKey = "kedai:menu_availability:gen"
)

type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient opens the client shared by the availability cache and the
// idempotency guard.
func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func (c *RedisAvailabilityCache) Get(ctx context.Context) ([]database.ListMenuAvailabilityRow, bool, int64, error) {
	vals, err := c.client.MGet(ctx, availabilityKey, availabilityGenKey).Result()
	if err != nil {
		return nil, false, 0, err
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, false, 0, err
	}
	val, ok := vals[0].(string)
	if !ok {
		return nil, false, gen, nil
	}

	var rows []database.ListMenuAvailabilityRow
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, false, gen, err
	}
	return rows, true, gen, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, gen int64, rows []database.ListMenuAvailabilityRow) error {
	if rows == nil {
		rows = []database.ListMenuAvailabilityRow{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, availabilityGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			// Invalidated after rows were read
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, availabilityKey, payload, c.ttl)
			return nil
		})
		return err
	}, availabilityGenKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, availabilityGenKey)
		pipe.Del(ctx, availabilityKey)
		return nil
	})
	return err
}

func parseGeneration(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("availability generation: unexpected %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}
