package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
)

func TestConnect_MigratesAndSeeds(t *testing.T) {
	cfg := &config.Config{
		Env:            config.EnvTest,
		DatabaseDriver: "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "test.db"),
		SeedCategories: true,
	}

	db, err := Connect(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer Close(db)

	var count int64
	db.Model(&models.Category{}).Count(&count)
	if count != int64(len(models.DefaultCategories)) {
		t.Errorf("expected %d categories, got %d", len(models.DefaultCategories), count)
	}

	// Seeding twice must not duplicate rows.
	if err := SeedCategories(db); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	db.Model(&models.Category{}).Count(&count)
	if count != int64(len(models.DefaultCategories)) {
		t.Errorf("expected seeding to be idempotent, got %d rows", count)
	}

	if !CheckConnection(context.Background(), db) {
		t.Error("expected connection check to succeed")
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "oracle", DatabaseURL: "x"}
	if _, err := Connect(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestCheckConnection_Closed(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "closed.db"),
	}
	db, err := Connect(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	Close(db)

	if CheckConnection(context.Background(), db) {
		t.Error("expected connection check to fail on a closed database")
	}
	if CheckConnection(context.Background(), nil) {
		t.Error("expected nil database to be reported as down")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"file", "hi-events.db", "hi-events.db?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"},
		{"memory", ":memory:", ":memory:?_busy_timeout=5000&_txlock=immediate"},
		{"existing query", "file:app.db?cache=shared", "file:app.db?cache=shared&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"},
		{"explicit option kept", "app.db?_busy_timeout=100", "app.db?_busy_timeout=100&_txlock=immediate&_journal_mode=WAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SQLiteDSN(tt.dsn); got != tt.want {
				t.Errorf("SQLiteDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
