package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"sharevault/internal/database/migrations"
	"sharevault/internal/sv"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresDatabase implements the Database interface using PostgreSQL
// through pgx's database/sql driver.
type PostgresDatabase struct {
	*store
}

// NewPostgresDatabase connects to dsn and migrates the schema to the latest
// version.
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.PostgresUp(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return NewPostgresDatabaseFromDB(db), nil
}

// NewPostgresDatabaseFromDB wraps an existing, already migrated connection.
func NewPostgresDatabaseFromDB(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{store: &store{db: db, dialect: postgresDialect{}}}
}

type postgresDialect struct{}

func (postgresDialect) rebind(query string) string { return rebindDollar(query) }

func (postgresDialect) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// secureDelete is a no-op: PostgreSQL reclaims dead tuples through VACUUM.
func (postgresDialect) secureDelete(context.Context, *sql.Tx) error { return nil }

// Compile-time check that PostgresDatabase implements sv.Database interface
var _ sv.Database = (*PostgresDatabase)(nil)
