package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

var ErrDirtySchema = errors.New("schema is in a dirty state")

// MigrationResult is the schema version before and after a run. Version 0
// means no migration has been applied.
type MigrationResult struct {
	From uint
	To   uint
}

func (r MigrationResult) Changed() bool { return r.From != r.To }

// Migrator drives golang-migrate over the Postgres accounts schema.
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

// NewMigrator connects to dsn and loads migrations from dir.
func NewMigrator(dir, dsn string) (*Migrator, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return &Migrator{m: m, db: db}, nil
}

// Version returns the applied version and the dirty flag.
func (g *Migrator) Version() (uint, bool, error) {
	v, dirty, err := g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Up applies pending migrations. A positive steps limits how many.
func (g *Migrator) Up(steps int) (MigrationResult, error) {
	if steps > 0 {
		return g.run(func() error { return g.m.Steps(steps) })
	}
	return g.run(g.m.Up)
}

// Down rolls back migrations. A positive steps limits how many; otherwise
// every migration is rolled back.
func (g *Migrator) Down(steps int) (MigrationResult, error) {
	if steps > 0 {
		return g.run(func() error { return g.m.Steps(-steps) })
	}
	return g.run(g.m.Down)
}

// Force marks version as applied and clears the dirty flag.
func (g *Migrator) Force(version int) error {
	return g.m.Force(version)
}

func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr, g.db.Close())
}

// run refuses a dirty schema, applies step and reports the version change.
// ErrNoChange is not an error.
func (g *Migrator) run(step func() error) (MigrationResult, error) {
	from, dirty, err := g.Version()
	if err != nil {
		return MigrationResult{}, fmt.Errorf("checking migration version: %w", err)
	}
	res := MigrationResult{From: from, To: from}
	if dirty {
		return res, fmt.Errorf("%w (version %d), manual intervention required", ErrDirtySchema, from)
	}
	if err := step(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, fmt.Errorf("applying migrations: %w", err)
	}
	if res.To, _, err = g.Version(); err != nil {
		return res, fmt.Errorf("checking migration version: %w", err)
	}
	return res, nil
}

// ApplyMigrations brings the schema in dsn up to the latest version in dir.
func ApplyMigrations(dir, dsn string) (MigrationResult, error) {
	g, err := NewMigrator(dir, dsn)
	if err != nil {
		return MigrationResult{}, err
	}
	defer g.Close()
	return g.Up(0)
}
