package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppName != defaultAppName || cfg.EventsStream != defaultEventsStream {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ReleaseRateLimit != defaultReleaseLimit || cfg.IdempotencyTTL != defaultIdempotencyTTL {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadRequiresBackendsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL to fail")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/vesting")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing REDIS_URL to fail")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("RELEASE_RATE_LIMIT_PER_MIN", "5")
	t.Setenv("EVENTS_STREAM", "custom:events")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second || cfg.IdempotencyTTL != 90*time.Minute {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.ReleaseRateLimit != 5 || cfg.EventsStream != "custom:events" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.AutoMigrate || cfg.LogFormat != "text" {
		t.Fatalf("unexpected migrate/log overrides %+v", cfg)
	}

	t.Setenv("RELEASE_RATE_LIMIT_PER_MIN", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid rate limit to fail")
	}
}
