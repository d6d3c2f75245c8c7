package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/metrics"
	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

// PairingService runs the rendezvous between a device showing a code and
// the admin who types it in.
type PairingService struct {
	pairings PairingStore
	players  PlayerStore
	tokens   *utils.TokenIssuer
	events   Events
	now      func() time.Time
	log      *zap.Logger
}

func NewPairingService(pairings PairingStore, players PlayerStore, tokens *utils.TokenIssuer, events Events, now func() time.Time, log *zap.Logger) *PairingService {
	if events == nil {
		events = NopEvents{}
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PairingService{pairings: pairings, players: players, tokens: tokens, events: events, now: now, log: log}
}

// Declare announces that deviceID is displaying code.  Earlier requests for
// the same device or the same code are superseded.
func (s *PairingService) Declare(ctx context.Context, deviceID, code string) error {
	deviceID, code = strings.TrimSpace(deviceID), strings.TrimSpace(code)
	if deviceID == "" || code == "" {
		return fmt.Errorf("%w: device_id and pairing_code are required", ErrValidation)
	}
	if err := firstErr(
		checkDeviceID(deviceID),
		checkLen("pairing_code", code, MaxPairingCodeLen),
	); err != nil {
		return err
	}
	if err := s.pairings.Declare(ctx, deviceID, code, s.now()); err != nil {
		return fmt.Errorf("declare pairing: %w", err)
	}
	s.log.Debug("pairing declared", zap.String("device_id", deviceID))
	return nil
}

// PairInput is what an admin submits to claim a device.
type PairInput struct {
	Code     string
	OrgID    string
	Name     string
	Location string
}

// Pair consumes a waiting code and creates the player for its device under
// in.OrgID.  Concurrent calls for one code succeed at most once; the others
// fail with an error matching ErrNotWaiting.
func (s *PairingService) Pair(ctx context.Context, in PairInput) (model.Player, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		metrics.PairingsTotal.WithLabelValues("invalid").Inc()
		return model.Player{}, fmt.Errorf("%w: pairing_code is required", ErrValidation)
	}
	if in.OrgID == "" {
		return model.Player{}, ErrUnauthenticated
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = model.DefaultPlayerName
	}
	location := strings.TrimSpace(in.Location)
	if err := firstErr(
		checkLen("pairing_code", code, MaxPairingCodeLen),
		checkLen("player_name", name, MaxPlayerNameLen),
		checkLen("location", location, MaxLocationLen),
	); err != nil {
		metrics.PairingsTotal.WithLabelValues("invalid").Inc()
		return model.Player{}, err
	}

	now := s.now().UTC()
	p, err := s.pairings.Pair(ctx, code, now, func(deviceID string) model.Player {
		return model.Player{
			PlayerID: utils.NewPlayerID(),
			Name:     name,
			OrgID:    in.OrgID,
			Status:   model.PlayerOnline,
			PairedAt: now,
			LastSeen: now,
			Location: location,
		}
	})
	switch {
	case errors.Is(err, repository.ErrNotWaiting):
		metrics.PairingsTotal.WithLabelValues("not_waiting").Inc()
		s.log.Info("pairing refused", zap.String("org_id", in.OrgID), zap.Error(err))
		return model.Player{}, err
	case errors.Is(err, repository.ErrDuplicateDevice):
		metrics.PairingsTotal.WithLabelValues("duplicate_device").Inc()
		return model.Player{}, ErrDuplicateDevice
	case err != nil:
		metrics.PairingsTotal.WithLabelValues("error").Inc()
		return model.Player{}, fmt.Errorf("pair device: %w", err)
	}

	metrics.PairingsTotal.WithLabelValues("ok").Inc()
	s.log.Info("device paired",
		zap.String("player_id", p.PlayerID),
		zap.String("device_id", p.DeviceID),
		zap.String("org_id", p.OrgID))
	s.events.PlayerPaired(ctx, p)
	return p, nil
}

// PairingStatus is what a device learns when it polls check-pairing.
type PairingStatus struct {
	Paired     bool
	Token      utils.Token
	PlayerID   string
	PlayerName string
}

// CheckStatus reports whether the request under code was paired for
// deviceID, and if so hands the device its token.  Every mismatch reads as
// not paired; only storage failures are errors.
func (s *PairingService) CheckStatus(ctx context.Context, deviceID, code string) (PairingStatus, error) {
	deviceID, code = strings.TrimSpace(deviceID), strings.TrimSpace(code)
	if deviceID == "" || code == "" {
		return PairingStatus{}, nil
	}
	req, err := s.pairings.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return PairingStatus{}, nil
	}
	if err != nil {
		return PairingStatus{}, fmt.Errorf("load pairing request: %w", err)
	}
	if req.DeviceID != deviceID || req.Status != model.PairingPaired {
		return PairingStatus{}, nil
	}

	p, err := s.players.GetByDevice(ctx, deviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return PairingStatus{}, nil
	}
	if err != nil {
		return PairingStatus{}, fmt.Errorf("load player: %w", err)
	}

	tok, err := s.tokens.Issue(deviceID, p.OrgID, utils.RoleDevice)
	if err != nil {
		return PairingStatus{}, fmt.Errorf("issue device token: %w", err)
	}
	return PairingStatus{Paired: true, Token: tok, PlayerID: p.PlayerID, PlayerName: p.Name}, nil
}
