package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t,
		"smp:pw@tcp(db:3306)/smp?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		MySQLDSN("smp", "pw", "db", "3306", "smp"))
	assert.Equal(t,
		"root@tcp(localhost:3306)/smp?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		MySQLDSN("root", "", "localhost", "3306", "smp"))
	assert.Contains(t, MySQLMigrateURL("root", "", "localhost", "3306", "smp"), "mysql://root@tcp(")
}

func TestMigrate_SQLiteUpDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "smp.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	url := SQLiteMigrateURL(path)
	require.NoError(t, Migrate("sqlite", url, "up"))
	require.NoError(t, Migrate("sqlite", url, "up"), "second run is a no-op")

	ctx := context.Background()
	for _, table := range []string{"users", "pairing_requests", "players"} {
		var n int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}

	require.NoError(t, Migrate("sqlite", url, "down"))
	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='players'`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrate_RejectsBadArguments(t *testing.T) {
	assert.Error(t, Migrate("sqlite", "sqlite://x.db", "sideways"))
	assert.Error(t, Migrate("postgres", "postgres://x", "up"))
}
