package migrate

import (
	"testing"
)

func TestParse(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n\n-- +migrate Down\nDROP TABLE a;\n"

	m, err := Parse("20240301120000-create-a.sql", content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Datetime != "20240301120000" || m.Name != "create-a" {
		t.Errorf("Parse() = %s/%s, want 20240301120000/create-a", m.Datetime, m.Name)
	}
	if m.Up != "CREATE TABLE a (id INTEGER);\n\n" {
		t.Errorf("Up = %q", m.Up)
	}
	if m.Down != "DROP TABLE a;\n" {
		t.Errorf("Down = %q", m.Down)
	}
}

func TestParseInvalidName(t *testing.T) {
	if _, err := Parse("create.sql", ""); err == nil {
		t.Error("Parse() error = nil, want invalid filename error")
	}
}

func TestFindPendingMigrations(t *testing.T) {
	files := []Migration{
		{Datetime: "1", Name: "a"},
		{Datetime: "2", Name: "b"},
		{Datetime: "3", Name: "c"},
	}
	applied := []Migration{{Datetime: "1", Name: "a"}, {Datetime: "3", Name: "c"}}

	pending := findPendingMigrations(files, applied)
	if len(pending) != 1 || pending[0].Name != "b" {
		t.Errorf("findPendingMigrations() = %+v, want only b", pending)
	}
}
