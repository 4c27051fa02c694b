package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "REDIS_ADDR", "REDIS_DB", "AVAILABILITY_CACHE_TTL_SECONDS", "REQUEST_TIMEOUT_SECONDS", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("redis addr: got %q, want empty", cfg.RedisAddr)
	}
	if cfg.AvailabilityCacheTTL != 30*time.Second {
		t.Errorf("cache ttl: got %v", cfg.AvailabilityCacheTTL)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("request timeout: got %v", cfg.RequestTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("allowed origins: got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("AVAILABILITY_CACHE_TTL_SECONDS", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://pos.example.com, https://admin.example.com,")
	t.Setenv("MIGRATIONS_PATH", "file:///app/migrations")

	cfg := Load()

	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis: got %q db %d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.AvailabilityCacheTTL != 5*time.Second {
		t.Errorf("cache ttl: got %v", cfg.AvailabilityCacheTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("allowed origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.MigrationsPath != "file:///app/migrations" {
		t.Errorf("migrations path: got %q", cfg.MigrationsPath)
	}
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	if cfg := Load(); cfg.RedisDB != 0 {
		t.Errorf("redis db: got %d, want 0", cfg.RedisDB)
	}
}
