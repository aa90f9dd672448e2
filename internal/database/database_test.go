package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinekit/routinekit/internal/config"
)

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", name,
	).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestRebind(t *testing.T) {
	query := "UPDATE routines SET title = ?, description = '?' WHERE id = ?"

	assert.Equal(t, query, Rebind(config.DriverSQLite3, query))
	assert.Equal(t, query, Rebind(config.DriverSQLite, query))
	assert.Equal(t,
		"UPDATE routines SET title = $1, description = '?' WHERE id = $2",
		Rebind(config.DriverPostgres, query),
	)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpen_PostgresRequiresURL(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: config.DriverPostgres})
	assert.Error(t, err)
}

func TestMigrate_InMemory(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())

	for _, table := range []string{"goals", "routines", "integration_runs"} {
		assert.True(t, tableExists(t, db, table), "expected table %s", table)
	}

	// Running again is a no-op.
	require.NoError(t, db.Migrate())
}

func TestMigrate_PureGoDriverOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "routines.db")

	db, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DriverSQLite, db.Driver())
	require.NoError(t, db.Migrate())
	assert.True(t, tableExists(t, db, "routines"))
}
