package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/mailer"
	"github.com/stereo-express/touch/pkg/cl/migrate"
)

// NewTestDB creates a new in-memory SQLite database with all migrations applied.
func NewTestDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// every connection to :memory: is a distinct database
	db.SetMaxOpenConns(1)

	if err := ApplyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot apply migrations: %w", err)
	}

	return db, nil
}

// ApplyMigrations applies the embedded sqlite migrations to the database.
func ApplyMigrations(db *sql.DB) error {
	m := migrate.New(touch.MigrationsFS, "sqlite", logger.NewNoopLogger())
	m.SetDB(db)
	return m.Run(context.Background())
}

// TestDBProvider implements DBProvider for testing.
type TestDBProvider struct {
	DB *sql.DB
}

func (p *TestDBProvider) GetDB() *sql.DB {
	return p.DB
}

// Engine reports the sqlite engine used by test databases.
func (p *TestDBProvider) Engine() string {
	return "sqlite"
}

// FakeMailer records sent messages. Err, when set, is returned by Send and
// nothing is recorded.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []mailer.Message
	Err  error
}

func (f *FakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Sent = append(f.Sent, msg)
	return nil
}

// Last returns the last sent message.
func (f *FakeMailer) Last() (mailer.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return mailer.Message{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}
