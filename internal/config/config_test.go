package config

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	cfg, err := LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if cfg.DBBackend != StorageSQLite {
		t.Fatalf("expected sqlite default backend, got %q", cfg.DBBackend)
	}
	if cfg.MaxRetry != 3 {
		t.Fatalf("expected default max retry 3, got %d", cfg.MaxRetry)
	}
	if cfg.HealthInterval != 2*time.Second {
		t.Fatalf("unexpected health interval: %v", cfg.HealthInterval)
	}
}

func TestLoadSettingsReadsEnvOverrides(t *testing.T) {
	t.Setenv("MUNINN_DB_BACKEND", "postgres")
	t.Setenv("MUNINN_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("MUNINN_MAX_RETRY", "5")
	t.Setenv("MUNINN_LIVE_INTERVAL", "30s")

	cfg, err := LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if cfg.DBBackend != StoragePostgres {
		t.Fatalf("unexpected backend: %q", cfg.DBBackend)
	}
	if cfg.MaxRetry != 5 {
		t.Fatalf("unexpected max retry: %d", cfg.MaxRetry)
	}
	if cfg.LiveInterval != 30*time.Second {
		t.Fatalf("unexpected live interval: %v", cfg.LiveInterval)
	}
}

func TestLoadSettingsRejectsUnknownStorageBackend(t *testing.T) {
	t.Setenv("MUNINN_DB_BACKEND", "mongodb")

	if _, err := LoadSettings(); err == nil {
		t.Fatal("expected load to fail for unknown storage backend")
	}
}

func TestLoadSettingsRejectsZeroRetryBudget(t *testing.T) {
	t.Setenv("MUNINN_MAX_RETRY", "0")

	if _, err := LoadSettings(); err == nil {
		t.Fatal("expected load to fail when retry budget is zero")
	}
}
