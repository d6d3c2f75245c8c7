package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository/filestore"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

const testSecret = "test-secret"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvents struct {
	mu       sync.Mutex
	paired   []model.Player
	assigned []model.Player
}

func (r *recordedEvents) PlayerPaired(_ context.Context, p model.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paired = append(r.paired, p)
}

func (r *recordedEvents) ContentAssigned(_ context.Context, p model.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigned = append(r.assigned, p)
}

type fixture struct {
	clock   *clock
	tokens  *utils.TokenIssuer
	events  *recordedEvents
	auth    *AuthService
	pairing *PairingService
	players *PlayerService
}

const placeholder = "data:text/html,placeholder"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := filestore.Open(t.TempDir())
	require.NoError(t, err)

	c := &clock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	tokens := utils.NewTokenIssuer(testSecret, 720*time.Hour, c.Now)
	ev := &recordedEvents{}
	return &fixture{
		clock:   c,
		tokens:  tokens,
		events:  ev,
		auth:    NewAuthService(store.Users(), tokens, 4, c.Now, nil),
		pairing: NewPairingService(store.Pairings(), store.Players(), tokens, ev, c.Now, nil),
		players: NewPlayerService(store.Players(), tokens, ev, PlayerOptions{
			LivenessWindow:    10 * time.Minute,
			RefreshInterval:   300,
			DefaultContentURL: placeholder,
		}, c.Now, nil),
	}
}

// pair declares code for deviceID and consumes it as orgID.
func (f *fixture) pair(t *testing.T, deviceID, code, orgID string) model.Player {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.pairing.Declare(ctx, deviceID, code))
	p, err := f.pairing.Pair(ctx, PairInput{Code: code, OrgID: orgID, Name: "Screen"})
	require.NoError(t, err)
	return p
}

// deviceToken runs check-pairing for deviceID and returns the issued token.
func (f *fixture) deviceToken(t *testing.T, deviceID, code string) string {
	t.Helper()
	st, err := f.pairing.CheckStatus(context.Background(), deviceID, code)
	require.NoError(t, err)
	require.True(t, st.Paired)
	return st.Token.Token
}
