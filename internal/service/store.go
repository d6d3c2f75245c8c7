package service

import (
	"context"
	"time"

	"github.com/iliyamo/signage-pairing/internal/model"
)

// UserStore persists accounts.  Create must return repository.ErrEmailExists
// for a taken email and lookups repository.ErrNotFound for missing users.
type UserStore interface {
	Create(ctx context.Context, u model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// PairingStore persists pairing requests and runs the pairing transaction.
type PairingStore interface {
	Declare(ctx context.Context, deviceID, code string, now time.Time) error
	GetByCode(ctx context.Context, code string) (model.PairingRequest, error)
	Pair(ctx context.Context, code string, now time.Time, newPlayer func(deviceID string) model.Player) (model.Player, error)
}

// PlayerStore persists players.
type PlayerStore interface {
	GetByDevice(ctx context.Context, deviceID string) (model.Player, error)
	GetByID(ctx context.Context, playerID string) (model.Player, error)
	Touch(ctx context.Context, deviceID string, now time.Time) (model.Player, error)
	ListByOrg(ctx context.Context, orgID string) ([]model.Player, error)
	ListAll(ctx context.Context) ([]model.Player, error)
	AssignContent(ctx context.Context, playerID, orgID string, url *string, now time.Time) error
	Stats(ctx context.Context, onlineSince time.Time) (total, online int, err error)
	MarkOffline(ctx context.Context, cutoff time.Time) (int64, error)
}

// Events receives domain notifications after the state change committed.
// Implementations must not block the request for long and must never fail
// it; delivery errors are theirs to log.
type Events interface {
	PlayerPaired(ctx context.Context, p model.Player)
	ContentAssigned(ctx context.Context, p model.Player)
}

// NopEvents discards every notification.
type NopEvents struct{}

func (NopEvents) PlayerPaired(context.Context, model.Player)    {}
func (NopEvents) ContentAssigned(context.Context, model.Player) {}

// MultiEvents fans a notification out to every member in order.
type MultiEvents []Events

func (m MultiEvents) PlayerPaired(ctx context.Context, p model.Player) {
	for _, e := range m {
		e.PlayerPaired(ctx, p)
	}
}

func (m MultiEvents) ContentAssigned(ctx context.Context, p model.Player) {
	for _, e := range m {
		e.ContentAssigned(ctx, p)
	}
}
