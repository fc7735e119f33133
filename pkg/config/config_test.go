package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FASTWORK_DB_DSN", "postgres://localhost:5432/fastwork?sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "dev" || !cfg.App.IsDev() {
		t.Fatalf("expected dev defaults, got %+v", cfg.App)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("unexpected default port %q", cfg.App.Port)
	}
	if cfg.DB.MaxOpenConns != 20 {
		t.Fatalf("unexpected pool default %d", cfg.DB.MaxOpenConns)
	}
	if cfg.Dispatcher.PollInterval != 2*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.Dispatcher.PollInterval)
	}
	if cfg.Dispatcher.BatchSize != 50 {
		t.Fatalf("unexpected batch size %d", cfg.Dispatcher.BatchSize)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("FASTWORK_DB_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DSN to fail")
	}
}

func TestEnvDetection(t *testing.T) {
	app := AppConfig{Env: "PROD"}
	if !app.IsProd() || app.IsDev() {
		t.Fatalf("env detection should be case-insensitive, got %+v", app)
	}
}
