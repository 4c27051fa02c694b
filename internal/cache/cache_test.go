package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kedai-pos/api/internal/database"
)

func TestNoopAvailabilityCache(t *testing.T) {
	var c AvailabilityCache = NoopAvailabilityCache{}
	ctx := context.Background()

	if err := c.Set(ctx, 0, []database.ListMenuAvailabilityRow{{ID: uuid.New(), Name: "Latte"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rows, ok, _, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || rows != nil {
		t.Fatalf("expected miss, got ok=%v rows=%v", ok, rows)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
}

func TestNoopRequestGuard(t *testing.T) {
	var g RequestGuard = NoopRequestGuard{}
	for i := 0; i < 2; i++ {
		seen, err := g.Seen(context.Background(), "same-key")
		if err != nil || seen {
			t.Fatalf("call %d: expected unseen, got seen=%v err=%v", i, seen, err)
		}
	}
	if err := g.Release(context.Background(), "same-key"); err != nil {
		t.Fatalf("release: %v", err)
	}
}
