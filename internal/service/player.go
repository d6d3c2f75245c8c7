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

// PlayerOptions are the deployment-wide policies of the player directory.
type PlayerOptions struct {
	LivenessWindow    time.Duration
	RefreshInterval   int
	DefaultContentURL string
}

// PlayerService lists players, assigns content and serves device polls.
type PlayerService struct {
	players PlayerStore
	tokens  *utils.TokenIssuer
	events  Events
	opts    PlayerOptions
	now     func() time.Time
	log     *zap.Logger
}

func NewPlayerService(players PlayerStore, tokens *utils.TokenIssuer, events Events, opts PlayerOptions, now func() time.Time, log *zap.Logger) *PlayerService {
	if opts.LivenessWindow <= 0 {
		opts.LivenessWindow = model.DefaultLivenessWindow
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 300
	}
	if events == nil {
		events = NopEvents{}
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlayerService{players: players, tokens: tokens, events: events, opts: opts, now: now, log: log}
}

// ListByOrg returns the players of orgID with liveness computed for now.
func (s *PlayerService) ListByOrg(ctx context.Context, orgID string) ([]model.Player, error) {
	ps, err := s.players.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return s.withLiveness(ps), nil
}

// ListAll returns every player of every organization.
func (s *PlayerService) ListAll(ctx context.Context) ([]model.Player, error) {
	ps, err := s.players.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return s.withLiveness(ps), nil
}

func (s *PlayerService) withLiveness(ps []model.Player) []model.Player {
	now := s.now()
	out := make([]model.Player, len(ps))
	for i, p := range ps {
		out[i] = p.WithLiveness(now, s.opts.LivenessWindow)
	}
	return out
}

// AssignContent points playerID at url.  An empty url clears the
// assignment.  Players of other organizations are reported as not found.
func (s *PlayerService) AssignContent(ctx context.Context, playerID, orgID, url string) error {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("%w: player_id is required", ErrValidation)
	}
	if len(url) > MaxContentURLBytes {
		return fmt.Errorf("%w: content_url must be at most %d bytes", ErrValidation, MaxContentURLBytes)
	}
	var ref *string
	if url = strings.TrimSpace(url); url != "" {
		ref = &url
	}
	err := s.players.AssignContent(ctx, playerID, orgID, ref, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("assign content: %w", err)
	}
	s.log.Info("content assigned", zap.String("player_id", playerID), zap.String("org_id", orgID))

	p, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		s.log.Warn("reload player after assignment", zap.String("player_id", playerID), zap.Error(err))
		return nil
	}
	s.events.ContentAssigned(ctx, p)
	return nil
}

// Stats returns the number of players and how many of them are online.
func (s *PlayerService) Stats(ctx context.Context) (total, online int, err error) {
	total, online, err = s.players.Stats(ctx, s.now().Add(-s.opts.LivenessWindow))
	if err != nil {
		return 0, 0, fmt.Errorf("player stats: %w", err)
	}
	return total, online, nil
}

// Content is the answer to a device content poll.
type Content struct {
	URL             string
	RefreshInterval int
	UpdatedAt       time.Time
}

// ResolveContent authenticates a device poll, records it for liveness and
// returns what the device should display.  The token must be a device token
// issued for deviceID itself.
func (s *PlayerService) ResolveContent(ctx context.Context, deviceID, rawToken string) (Content, error) {
	deviceID = strings.TrimSpace(deviceID)
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		metrics.ContentPollsTotal.WithLabelValues("unauthenticated").Inc()
		s.log.Debug("device token rejected", zap.String("device_id", deviceID), zap.Error(err))
		return Content{}, ErrUnauthenticated
	}
	if claims.Role != utils.RoleDevice || claims.Subject != deviceID {
		metrics.ContentPollsTotal.WithLabelValues("unauthenticated").Inc()
		s.log.Debug("device token rejected",
			zap.String("device_id", deviceID),
			zap.String("subject", claims.Subject),
			zap.String("role", claims.Role))
		return Content{}, ErrUnauthenticated
	}

	p, err := s.players.Touch(ctx, deviceID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		metrics.ContentPollsTotal.WithLabelValues("not_found").Inc()
		return Content{}, ErrNotFound
	}
	if err != nil {
		metrics.ContentPollsTotal.WithLabelValues("error").Inc()
		return Content{}, fmt.Errorf("touch player: %w", err)
	}

	url := p.Content()
	if url == "" {
		url = s.opts.DefaultContentURL
	}
	metrics.ContentPollsTotal.WithLabelValues("ok").Inc()
	return Content{URL: url, RefreshInterval: s.opts.RefreshInterval, UpdatedAt: p.LastSeen}, nil
}

// SweepOffline persists the offline status of players whose last poll is
// older than the liveness window.  Reads never depend on it.
func (s *PlayerService) SweepOffline(ctx context.Context) (int64, error) {
	n, err := s.players.MarkOffline(ctx, s.now().Add(-s.opts.LivenessWindow))
	if err != nil {
		return 0, fmt.Errorf("mark offline: %w", err)
	}
	if n > 0 {
		metrics.SweptOfflineTotal.Add(float64(n))
		s.log.Info("players marked offline", zap.Int64("count", n))
	}
	return n, nil
}
