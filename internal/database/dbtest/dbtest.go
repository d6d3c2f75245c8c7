// Package dbtest provides a migrated throwaway SQLite database for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/iliyamo/signage-pairing/internal/database"
)

// NewSQLite migrates a fresh database file under t.TempDir and opens it.  The
// handle is closed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smp.db")
	if err := database.Migrate("sqlite", database.SQLiteMigrateURL(path), "up"); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	db, err := database.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
