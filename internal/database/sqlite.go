package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"sharevault/internal/database/migrations"
	"sharevault/internal/sv"
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	*store
	path string
}

// NewSQLiteDatabase opens the SQLite database at path and migrates it to the
// latest schema. path can be a file path or ":memory:" for an in-memory database.
//
// A file-backed database gets a second handle for reads. Its transactions
// begin DEFERRED, so lookups and listings take only a shared lock and never
// queue behind writers.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	st := &store{db: db, dialect: sqliteDialect{}}
	if path != memoryPath {
		if st.reader, err = openSQLite(path, "deferred"); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLiteDatabase{store: st, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		store: &store{db: db, dialect: sqliteDialect{}},
	}
}

const memoryPath = ":memory:"

// OpenConnection opens the writer connection for path. Its transactions
// begin IMMEDIATE so concurrent writers queue on the busy timeout instead
// of failing on lock upgrade.
func OpenConnection(path string) (*sql.DB, error) {
	return openSQLite(path, "immediate")
}

// openSQLite passes every setting in the DSN so each pooled connection
// gets it.
func openSQLite(path, txlock string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=" + txlock
	if path != memoryPath {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

type sqliteDialect struct{}

func (sqliteDialect) rebind(query string) string { return query }

func (sqliteDialect) isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// secureDelete turns on secure_delete for the transaction's connection so
// deleted rows are overwritten with zeros.
func (sqliteDialect) secureDelete(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "PRAGMA secure_delete = ON")
	return err
}

// Compile-time check that SQLiteDatabase implements sv.Database interface
var _ sv.Database = (*SQLiteDatabase)(nil)
