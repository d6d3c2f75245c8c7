package repository_test

import (
	"testing"

	"github.com/iliyamo/signage-pairing/internal/database/dbtest"
	"github.com/iliyamo/signage-pairing/internal/repository"
	"github.com/iliyamo/signage-pairing/internal/repository/storetest"
)

func TestSQLiteBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Stores {
		db := dbtest.NewSQLite(t)
		return storetest.Stores{
			Users:    repository.NewUserRepo(db),
			Pairings: repository.NewPairingRepo(db),
			Players:  repository.NewPlayerRepo(db),
		}
	})
}
