package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/migrate"
)

// Database manages the SQL connection and its lifecycle.
type Database struct {
	DB           *sql.DB
	migrationsFS fs.FS
	cfg          *config.Config
	log          logger.Logger
}

// New creates a new Database instance.
func New(migrationsFS fs.FS, cfg *config.Config, log logger.Logger) *Database {
	return &Database{
		migrationsFS: migrationsFS,
		cfg:          cfg,
		log:          log,
	}
}

// Start opens the database connection and runs migrations.
func (d *Database) Start(ctx context.Context) error {
	if err := d.Connect(ctx); err != nil {
		return err
	}

	if err := d.Migrator().Run(ctx); err != nil {
		return fmt.Errorf("cannot run migrations: %w", err)
	}

	return nil
}

// Connect opens and pings the database without touching its schema.
func (d *Database) Connect(ctx context.Context) error {
	db, err := d.open()
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("cannot ping database: %w", err)
	}

	d.DB = db
	d.log.Infof("Database connection established [%s]", d.cfg.Database.Driver)
	return nil
}

// Migrator returns a migrator bound to the open connection.
func (d *Database) Migrator() *migrate.Migrator {
	migrator := migrate.New(d.migrationsFS, d.Engine(), d.log)
	migrator.SetDB(d.DB)
	return migrator
}

func (d *Database) open() (*sql.DB, error) {
	switch d.cfg.Database.Driver {
	case "pgx":
		db, err := sql.Open("pgx", d.cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("cannot open database: %w", err)
		}
		return db, nil
	case "", "sqlite3":
		if err := os.MkdirAll(filepath.Dir(d.cfg.Database.Path), 0755); err != nil {
			return nil, fmt.Errorf("cannot create database directory: %w", err)
		}
		// WAL for concurrent readers while a submission is written
		dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", d.cfg.Database.Path)
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("cannot open database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d.cfg.Database.Driver)
	}
}

// Stop closes the database connection.
func (d *Database) Stop(ctx context.Context) error {
	if d.DB != nil {
		d.log.Info("Closing database connection")
		return d.DB.Close()
	}
	return nil
}

// GetDB returns the underlying sql.DB.
func (d *Database) GetDB() *sql.DB {
	return d.DB
}

// Engine returns "sqlite" or "postgres".
func (d *Database) Engine() string {
	return d.cfg.Database.Engine()
}

// Rebind converts '?' placeholders to the '$n' form expected by postgres.
// Queries for sqlite are returned untouched.
func Rebind(engine, query string) string {
	if engine != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Placeholders returns n comma separated '?' placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
