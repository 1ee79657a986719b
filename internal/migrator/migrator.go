// Package migrator applies the embedded SQL schema migrations with
// golang-migrate.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator runs migrations from an fs.FS of .sql files.
type Migrator struct {
	migrationsFS fs.FS
}

// NewWithFS creates a migrator over the given filesystem.
func NewWithFS(migrationsFS fs.FS) (*Migrator, error) {
	if migrationsFS == nil {
		return nil, errors.New("migrationsFS cannot be nil")
	}
	return &Migrator{migrationsFS: migrationsFS}, nil
}

func (m *Migrator) instance(databaseURL string) (*migrate.Migrate, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL cannot be empty")
	}

	sourceDriver, err := iofs.New(m.migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	instance, err := migrate.NewWithSourceInstance("iofs", sourceDriver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return instance, nil
}

// Up applies all pending migrations. An already current schema is not
// an error.
func (m *Migrator) Up(_ context.Context, databaseURL string) error {
	instance, err := m.instance(databaseURL)
	if err != nil {
		return err
	}
	defer instance.Close()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Version returns the current schema version and dirty state. A
// database with no applied migrations reports version 0.
func (m *Migrator) Version(_ context.Context, databaseURL string) (uint, bool, error) {
	instance, err := m.instance(databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer instance.Close()

	version, dirty, err := instance.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, dirty, nil
}
