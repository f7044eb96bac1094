package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		engine string
		query  string
		want   string
	}{
		{
			name:   "sqlite untouched",
			engine: "sqlite",
			query:  "SELECT * FROM submissions WHERE id IN (?, ?)",
			want:   "SELECT * FROM submissions WHERE id IN (?, ?)",
		},
		{
			name:   "postgres numbered",
			engine: "postgres",
			query:  "UPDATE submissions SET name = ?, mail = ? WHERE id = ?",
			want:   "UPDATE submissions SET name = $1, mail = $2 WHERE id = $3",
		},
		{
			name:   "quoted question mark kept",
			engine: "postgres",
			query:  "SELECT '?' FROM submissions WHERE id = ?",
			want:   "SELECT '?' FROM submissions WHERE id = $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.engine, tt.query); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders(3); got != "?, ?, ?" {
		t.Errorf("Placeholders(3) = %q", got)
	}
	if got := Placeholders(0); got != "" {
		t.Errorf("Placeholders(0) = %q, want empty", got)
	}
}

func TestStartRunsMigrations(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "db", "touch.db")

	db := New(touch.MigrationsFS, cfg, logger.NewNoopLogger())
	if err := db.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer db.Stop(context.Background())

	var count int
	if err := db.GetDB().QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("cannot count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("applied migrations = %d, want 2", count)
	}

	// Second start must not re-apply anything.
	db2 := New(touch.MigrationsFS, cfg, logger.NewNoopLogger())
	if err := db2.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	db2.Stop(context.Background())
}

func TestStartUnsupportedDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "oracle"

	db := New(touch.MigrationsFS, cfg, logger.NewNoopLogger())
	if err := db.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want unsupported driver error")
	}
}

func TestConnectLeavesSchemaAlone(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "touch.db")

	db := New(touch.MigrationsFS, cfg, logger.NewNoopLogger())
	if err := db.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer db.Stop(ctx)

	pending, err := db.Migrator().Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Pending() = %d migrations, want 2", len(pending))
	}

	if err := db.Migrator().Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	pending, err = db.Migrator().Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Pending() after Run = %d migrations, want 0", len(pending))
	}
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "oracle"

	db := New(touch.MigrationsFS, cfg, logger.NewNoopLogger())
	if err := db.Connect(context.Background()); err == nil {
		t.Fatal("Connect() with unknown driver succeeded")
	}
}
