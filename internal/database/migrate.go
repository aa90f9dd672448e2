package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	migrate "github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/routinekit/routinekit/internal/config"
)

//go:embed migrations
var migrationsFS embed.FS

func runMigrations(db *DB) error {
	dir := "migrations/sqlite"
	if db.driver == config.DriverPostgres {
		dir = "migrations/postgres"
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}

	var (
		driver migratedb.Driver
		conn   *sql.DB
	)
	switch db.driver {
	case config.DriverSQLite3:
		// The migration driver must share our connection so :memory: databases see the schema.
		driver, err = migratesqlite3.WithInstance(db.DB, &migratesqlite3.Config{})
	case config.DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	case config.DriverPostgres:
		// Postgres pins a connection for its advisory lock; give it its own pool.
		conn, err = sql.Open("postgres", db.dsn)
		if err == nil {
			driver, err = migratepostgres.WithInstance(conn, &migratepostgres.Config{})
		}
	default:
		err = fmt.Errorf("unsupported database driver %q", db.driver)
	}
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.driver, driver)
	if err != nil {
		return err
	}
	if conn != nil {
		defer func() { _, _ = m.Close() }()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
