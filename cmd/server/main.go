package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kedai-pos/api/internal/cache"
	"github.com/kedai-pos/api/internal/config"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/router"
	"github.com/kedai-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrationsPath != "" {
		if err := runMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	hub := ws.NewHub()
	go hub.Run(ctx)

	var (
		availCache cache.AvailabilityCache = cache.NoopAvailabilityCache{}
		guard      cache.RequestGuard      = cache.NoopRequestGuard{}
	)
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Redis is optional: reads fall back to Postgres.
			log.Printf("WARN: redis ping %s: %v", cfg.RedisAddr, err)
		}
		availCache = cache.NewRedisAvailabilityCache(rdb, cfg.AvailabilityCacheTTL)
		guard = cache.NewRedisRequestGuard(rdb, cfg.IdempotencyTTL)
		log.Printf("Redis cache enabled at %s", cfg.RedisAddr)
	}

	r := router.New(cfg, database.New(pool), pool, hub, availCache, guard)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}

// runMigrations applies every pending migration from sourceURL.
func runMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Printf("Schema at version %d (dirty=%t)", version, dirty)
	return nil
}
