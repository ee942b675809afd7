// Package migrations embeds the metadata schema for both database backends.
// SQLite is versioned with golang-migrate, PostgreSQL with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pressly/goose/v3"
)

//go:embed files/*.sql
var sqliteFiles embed.FS

//go:embed postgres/*.sql
var postgresFiles embed.FS

// ErrUnversioned is returned by Check for a database that was never migrated.
var ErrUnversioned = errors.New("schema has no version")

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// Status describes where a SQLite schema stands relative to the embedded files.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// Behind reports how many migrations are pending.
func (s Status) Behind() uint {
	if s.Current >= s.Latest {
		return 0
	}
	return s.Latest - s.Current
}

// Up applies every pending SQLite migration. Already current is not an error.
func Up(db *sql.DB) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	// m is not closed: that would close db, which the caller owns.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying sqlite migrations: %w", err)
	}
	return nil
}

// Inspect reads the schema version of db and the latest embedded version.
func Inspect(db *sql.DB) (Status, error) {
	m, err := open(db)
	if err != nil {
		return Status{}, err
	}
	current, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, ErrUnversioned
	}
	if err != nil {
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	}

	src, err := iofs.New(sqliteFiles, "files")
	if err != nil {
		return Status{}, fmt.Errorf("reading embedded migrations: %w", err)
	}
	defer src.Close()
	latest, err := lastVersion(src)
	if err != nil {
		return Status{}, err
	}
	return Status{Current: current, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil only when db is exactly at the latest embedded version.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	switch {
	case st.Dirty:
		return fmt.Errorf("schema version %d is dirty; a previous migration failed", st.Current)
	case st.Current < st.Latest:
		return fmt.Errorf("schema version %d is %d behind %d", st.Current, st.Behind(), st.Latest)
	case st.Current > st.Latest:
		return fmt.Errorf("schema version %d is newer than this binary (%d)", st.Current, st.Latest)
	}
	return nil
}

func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(sqliteFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("wrapping sqlite connection: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing migrations: %w", err)
	}
	return m, nil
}

func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no embedded migrations: %w", err)
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}

// PostgresUp applies every pending PostgreSQL migration.
func PostgresUp(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(postgresFiles)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("selecting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("applying postgres migrations: %w", err)
	}
	return nil
}
