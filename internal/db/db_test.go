package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_CreateSessionTable(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			up, err := os.ReadFile(filepath.Join("../../migrations", driver, "000001_init.up.sql"))
			require.NoError(t, err)
			assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS sessions")
			assert.Contains(t, string(up), "sessions_expiry_idx")

			down, err := os.ReadFile(filepath.Join("../../migrations", driver, "000001_init.down.sql"))
			require.NoError(t, err)
			assert.Contains(t, string(down), "DROP TABLE IF EXISTS sessions")
		})
	}
}

func TestRunMigrations_SQLite(t *testing.T) {
	conn, err := sqlx.Connect(DriverSQLite, "file::memory:")
	require.NoError(t, err)
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	require.NoError(t, RunMigrations(conn, "../../migrations"))
	// Applying twice is a no-op
	require.NoError(t, RunMigrations(conn, "../../migrations"))

	var count int
	require.NoError(t, conn.Get(&count, "SELECT COUNT(*) FROM sessions"))
	assert.Zero(t, count)
}
