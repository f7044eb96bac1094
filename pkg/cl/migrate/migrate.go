package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

// Migration represents a database migration.
type Migration struct {
	Datetime string
	Name     string
	Up       string
	Down     string
}

// Migrator applies embedded SQL migrations and records them in the
// migrations table.
type Migrator struct {
	db       *sql.DB
	log      logger.Logger
	assetsFS fs.FS
	engine   string
	path     string
}

// New creates a new Migrator for the given engine ("sqlite" or "postgres").
func New(assetsFS fs.FS, engine string, log logger.Logger) *Migrator {
	return &Migrator{
		assetsFS: assetsFS,
		engine:   engine,
		log:      log,
	}
}

// SetDB sets the database connection.
func (m *Migrator) SetDB(db *sql.DB) {
	m.db = db
}

// SetPath sets a custom migration path.
func (m *Migrator) SetPath(path string) {
	m.path = path
}

// Run executes pending migrations in order, each in its own transaction.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("cannot create migrations table: %w", err)
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		m.log.Info("No pending migrations")
		return nil
	}

	m.log.Infof("Running %d pending migration(s)", len(pending))

	for _, migration := range pending {
		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %s-%s failed: %w", migration.Datetime, migration.Name, err)
		}
		m.log.Infof("Applied migration: %s-%s", migration.Datetime, migration.Name)
	}

	return nil
}

// Pending returns the file migrations not yet recorded in the database.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("cannot create migrations table: %w", err)
	}

	fileMigrations, err := m.loadFileMigrations()
	if err != nil {
		return nil, fmt.Errorf("cannot load file migrations: %w", err)
	}

	dbMigrations, err := m.loadDBMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load database migrations: %w", err)
	}

	return findPendingMigrations(fileMigrations, dbMigrations), nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS migrations (
		id TEXT PRIMARY KEY,
		datetime TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) loadFileMigrations() ([]Migration, error) {
	migrationPath := m.path
	if migrationPath == "" {
		migrationPath = fmt.Sprintf("assets/migrations/%s", m.engine)
	}

	var migrations []Migration
	err := fs.WalkDir(m.assetsFS, migrationPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}

		content, err := fs.ReadFile(m.assetsFS, p)
		if err != nil {
			return fmt.Errorf("cannot read migration file %s: %w", p, err)
		}

		migration, err := Parse(path.Base(p), string(content))
		if err != nil {
			return err
		}
		migrations = append(migrations, migration)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Datetime < migrations[j].Datetime
	})

	return migrations, nil
}

// Parse splits a "<datetime>-<name>.sql" file into its Up and Down sections.
func Parse(filename, content string) (Migration, error) {
	parts := strings.SplitN(filename, "-", 2)
	if len(parts) < 2 {
		return Migration{}, fmt.Errorf("invalid migration filename: %s", filename)
	}

	migration := Migration{
		Datetime: parts[0],
		Name:     strings.TrimSuffix(parts[1], ".sql"),
	}
	for _, section := range strings.Split(content, "-- +migrate ") {
		switch {
		case strings.HasPrefix(section, "Up"):
			migration.Up = strings.TrimPrefix(section, "Up\n")
		case strings.HasPrefix(section, "Down"):
			migration.Down = strings.TrimPrefix(section, "Down\n")
		}
	}
	return migration, nil
}

func (m *Migrator) loadDBMigrations(ctx context.Context) ([]Migration, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT datetime, name FROM migrations ORDER BY datetime")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []Migration
	for rows.Next() {
		var migration Migration
		if err := rows.Scan(&migration.Datetime, &migration.Name); err != nil {
			return nil, err
		}
		migrations = append(migrations, migration)
	}
	return migrations, rows.Err()
}

func findPendingMigrations(fileMigrations, dbMigrations []Migration) []Migration {
	applied := make(map[string]struct{}, len(dbMigrations))
	for _, dbMigration := range dbMigrations {
		applied[dbMigration.Datetime+dbMigration.Name] = struct{}{}
	}

	var pending []Migration
	for _, fileMigration := range fileMigrations {
		if _, exists := applied[fileMigration.Datetime+fileMigration.Name]; !exists {
			pending = append(pending, fileMigration)
		}
	}
	return pending
}

func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	if migration.Up == "" {
		return fmt.Errorf("no Up section found in migration %s-%s", migration.Datetime, migration.Name)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return err
	}

	insert := "INSERT INTO migrations (id, datetime, name, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)"
	if m.engine == "postgres" {
		insert = "INSERT INTO migrations (id, datetime, name, created_at) VALUES ($1, $2, $3, CURRENT_TIMESTAMP)"
	}
	if _, err := tx.ExecContext(ctx, insert, uuid.New().String(), migration.Datetime, migration.Name); err != nil {
		return err
	}

	return tx.Commit()
}
