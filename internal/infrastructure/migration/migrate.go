// Package migration applies and authors the versioned SQL schema of the catalog.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator runs golang-migrate over an embedded or on-disk migration set
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Status describes where the database stands relative to the available migrations
type Status struct {
	Version uint
	Dirty   bool
	Latest  uint
}

// Pending reports whether migrations newer than the applied version exist
func (s Status) Pending() bool {
	return s.Latest > s.Version
}

// New creates a Migrator over an open Postgres connection reading migrations from the root of source
func New(db *sql.DB, source fs.FS, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migrate")
	m.Log = migrateLog{log.Sugar()}
	return &Migrator{m: m, log: log}, nil
}

// apply runs one golang-migrate operation. ErrNoChange counts as success.
func (m *Migrator) apply(op string, run func() error) error {
	if err := run(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info("Schema already current", zap.String("op", op))
			return nil
		}
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Info("Schema migrated", zap.String("op", op), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (m *Migrator) Up() error {
	return m.apply("up", m.m.Up)
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	return m.apply("down", m.m.Down)
}

// Steps applies n migrations; a negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %+d", n), func() error { return m.m.Steps(n) })
}

func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.m.Migrate(version) })
}

// Force records version as applied without running anything, to repair a dirty database
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing migration version", zap.Int("version", version))
	return m.apply(fmt.Sprintf("force %d", version), func() error { return m.m.Force(version) })
}

// Version returns the applied version; an unmigrated database is version 0
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Status compares the applied version with the newest migration in source
func (m *Migrator) Status(source fs.FS) (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, err
	}
	latest, err := LatestVersion(source)
	if err != nil {
		return Status{}, err
	}
	return Status{Version: version, Dirty: dirty, Latest: latest}, nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLog routes golang-migrate's progress output to zap at debug level
type migrateLog struct {
	s *zap.SugaredLogger
}

func (l migrateLog) Printf(format string, v ...any) {
	l.s.Debugf(format, v...)
}

func (l migrateLog) Verbose() bool {
	return l.s.Desugar().Core().Enabled(zap.DebugLevel)
}
