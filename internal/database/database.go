// Package database opens the routine store on SQLite or Postgres and manages
// its schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Postgres driver for database/sql
	_ "github.com/lib/pq"
	// SQLite (cgo) driver for database/sql
	_ "github.com/mattn/go-sqlite3"
	// SQLite (pure Go) driver for database/sql
	_ "modernc.org/sqlite"

	"github.com/routinekit/routinekit/internal/config"
)

// DB wraps a sql.DB connection and rewrites placeholders for its dialect.
type DB struct {
	*sql.DB
	driver string
	dsn    string
}

// Open connects to the database described by cfg.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite3, config.DriverSQLite:
		return openSQLite(cfg.Driver, cfg.Path)
	case config.DriverPostgres:
		return openPostgres(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// New opens a SQLite database at dbPath using the cgo driver.
func New(dbPath string) (*DB, error) {
	return openSQLite(config.DriverSQLite3, dbPath)
}

func openSQLite(driver, dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"
	if !memory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}

	dsn := dbPath + "?_foreign_keys=on"
	if driver == config.DriverSQLite {
		dsn = dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Every pooled connection to :memory: would see its own empty database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db, driver: driver, dsn: dsn}, nil
}

func openPostgres(url string) (*DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required for the postgres driver")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db, driver: config.DriverPostgres, dsn: url}, nil
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// Rebind rewrites ? placeholders into the dialect's bind variables.
func (db *DB) Rebind(query string) string {
	return Rebind(db.driver, query)
}

// Rebind rewrites ? placeholders for driver. Postgres uses $1, $2...
// while both SQLite drivers accept ? as is.
func Rebind(driver, query string) string {
	if driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inString = !inString
			b.WriteByte(ch)
		case ch == '?' && !inString:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// ExecContext executes query after rebinding its placeholders.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Rebind(query), args...)
}

// QueryContext runs query after rebinding its placeholders.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Rebind(query), args...)
}

// QueryRowContext runs query after rebinding its placeholders.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Rebind(query), args...)
}

// Migrate runs all pending schema migrations.
func (db *DB) Migrate() error {
	return runMigrations(db)
}
