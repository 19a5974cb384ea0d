package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Schema version tracking:
// 0 - Initial schema
// 1 - Added (user_id, date) index on meal_logs for the joined list query
const currentSchemaVersion = 1

var (
	// ErrVendorNotFound is returned when a vendor does not exist or is owned
	// by another identity.
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrMealLogNotFound is returned when no meal log matches a natural key.
	ErrMealLogNotFound = errors.New("meal log not found")

	// ErrVendorNameTaken is returned when a rename collides with another
	// vendor of the same identity.
	ErrVendorNameTaken = errors.New("vendor name already exists")

	// ErrPriceRequired is returned for an entry with no price whose meal type
	// the vendor does not offer.
	ErrPriceRequired = errors.New("price is required")
)

// Store provides durable storage for vendors, offerings and meal logs.
type Store struct {
	db     *sql.DB
	driver string
	newID  func() string
}

// Open opens a database with the given driver and applies the schema and
// migrations. For sqlite3 the dsn is a file path.
//
// This function is idempotent - safe to call multiple times.
func Open(driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, driver: driver, newID: func() string { return uuid.Must(uuid.NewV7()).String() }}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

// OpenSQLite opens a SQLite database at path.
func OpenSQLite(path string) (*Store, error) {
	return Open(DriverSQLite, path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the database/sql driver name.
func (s *Store) Driver() string { return s.driver }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func (s *Store) applySchema() error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations. SQLite tracks the
// version in PRAGMA user_version, PostgreSQL in the schema_version table.
func (s *Store) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version < 1 {
		if err := s.migrateToV1(); err != nil {
			return err
		}
	}

	return s.setSchemaVersion(currentSchemaVersion)
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if s.driver == DriverSQLite {
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			return 0, fmt.Errorf("get user_version: %w", err)
		}
		return version, nil
	}
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get schema_version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(v int) error {
	if s.driver == DriverSQLite {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES ($1)", v); err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	return tx.Commit()
}

// migrateToV1 adds the index backing ListMealLogs.
func (s *Store) migrateToV1() error {
	_, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_meal_logs_user_date
		ON meal_logs(user_id, date)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// q rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) q(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	return rebind(query)
}

func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
