// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"rental-backoffice/backend/internal/db"
)

// Directions accepted by Run.
const (
	Up    = "up"    // apply every pending migration
	Down  = "down"  // roll back the most recent migration
	Reset = "reset" // roll back every migration
)

// Result reports the schema version after a run. Version is 0 when no migration is applied.
type Result struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Run migrates the database at dsn in direction. Having nothing to do is not an error;
// Result.Changed tells the two apart.
func Run(dsn, direction string) (Result, error) {
	if strings.TrimSpace(dsn) == "" {
		return Result{}, db.ErrEmptyDSN
	}
	step, ok := steps[direction]
	if !ok {
		return Result{}, fmt.Errorf("direction must be %s, %s or %s, got %q", Up, Down, Reset, direction)
	}

	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return Result{}, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	var res Result
	switch err := step(m); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return res, fmt.Errorf("migrate %s: %w", direction, err)
	default:
		res.Changed = true
	}

	res.Version, res.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return res, fmt.Errorf("read schema version: %w", err)
	}
	return res, nil
}

var steps = map[string]func(*migrate.Migrate) error{
	Up:    func(m *migrate.Migrate) error { return m.Up() },
	Down:  func(m *migrate.Migrate) error { return m.Steps(-1) },
	Reset: func(m *migrate.Migrate) error { return m.Down() },
}
