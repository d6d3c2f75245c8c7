package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/config"
	"github.com/iliyamo/signage-pairing/internal/database"
	"github.com/iliyamo/signage-pairing/internal/repository"
	"github.com/iliyamo/signage-pairing/internal/repository/filestore"
	"github.com/iliyamo/signage-pairing/internal/service"
)

type stores struct {
	users    service.UserStore
	pairings service.PairingStore
	players  service.PlayerStore
	db       *sql.DB
}

func (s stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// openStores migrates and opens the backend named by STORE_DRIVER.
func openStores(cfg config.Config, log *zap.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		fs, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return stores{}, err
		}
		log.Info("using file store", zap.String("dir", cfg.DataDir))
		return stores{users: fs.Users(), pairings: fs.Pairings(), players: fs.Players()}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return stores{}, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		if err := database.Migrate("sqlite", database.SQLiteMigrateURL(cfg.SQLitePath), "up"); err != nil {
			return stores{}, fmt.Errorf("migrate sqlite: %w", err)
		}
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		log.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return sqlStores(db), nil

	case config.DriverMySQL:
		url := database.MySQLMigrateURL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err := database.Migrate("mysql", url, "up"); err != nil {
			return stores{}, fmt.Errorf("migrate mysql: %w", err)
		}
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return stores{}, err
		}
		log.Info("using mysql store", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return sqlStores(db), nil
	}
	return stores{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func sqlStores(db *sql.DB) stores {
	return stores{
		users:    repository.NewUserRepo(db),
		pairings: repository.NewPairingRepo(db),
		players:  repository.NewPlayerRepo(db),
		db:       db,
	}
}
