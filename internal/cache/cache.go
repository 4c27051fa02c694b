// Package cache holds the read cache for the menu availability list.
package cache

import (
	"context"

	"github.com/kedai-pos/api/internal/database"
)

// AvailabilityCache caches the menu availability list. Invalidate is called
// after every commit that changes ingredient stock.
//
// Get reports the current generation alongside a miss. Set stores rows only
// if no Invalidate has happened since that generation was read, so a list
// loaded before a stock change never lands in the cache after it.
type AvailabilityCache interface {
	Get(ctx context.Context) (rows []database.ListMenuAvailabilityRow, hit bool, gen int64, err error)
	Set(ctx context.Context, gen int64, rows []database.ListMenuAvailabilityRow) error
	Invalidate(ctx context.Context) error
}

// NoopAvailabilityCache never hits. Used when REDIS_ADDR is empty.
type NoopAvailabilityCache struct{}

func (NoopAvailabilityCache) Get(_ context.Context) ([]database.ListMenuAvailabilityRow, bool, int64, error) {
	return nil, false, 0, nil
}

func (NoopAvailabilityCache) Set(_ context.Context, _ int64, _ []database.ListMenuAvailabilityRow) error {
	return nil
}

func (NoopAvailabilityCache) Invalidate(_ context.Context) error {
	return nil
}
