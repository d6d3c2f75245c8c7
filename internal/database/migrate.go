package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationFS embeds the per-dialect SQL migrations.
//
//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// ErrNoChange is returned when Up/Down has nothing to do.
var ErrNoChange = migrate.ErrNoChange

// MySQLMigrateURL and SQLiteMigrateURL build the database URLs understood by
// the golang-migrate drivers.
func MySQLMigrateURL(user, pass, host, port, name string) string {
	return "mysql://" + MySQLDSN(user, pass, host, port, name) + "&multiStatements=true"
}

func SQLiteMigrateURL(path string) string { return "sqlite://" + path }

// Migrate applies the dialect's migrations in direction ("up" or "down").
// dialect is "mysql" or "sqlite".  Already being at the target version is
// not an error.
func Migrate(dialect, databaseURL, direction string) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	if dialect != "mysql" && dialect != "sqlite" {
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	src, err := iofs.New(migrationFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
