package migrate

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"rental-backoffice/backend/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		if _, err := Run(dsn, Up); !errors.Is(err, db.ErrEmptyDSN) {
			t.Errorf("Run(%q): want ErrEmptyDSN, got %v", dsn, err)
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down", "drop"} {
		t.Run(direction, func(t *testing.T) {
			_, err := Run("postgres://localhost/test", direction)
			if err == nil || !strings.Contains(err.Error(), "direction must be") {
				t.Errorf("Run with direction %q: got %v", direction, err)
			}
		})
	}
}

func TestRun_MalformedDSN(t *testing.T) {
	if _, err := Run("postgres://localhost with spaces/test", Up); err == nil {
		t.Error("Run with DSN containing spaces should return error")
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}
}
