// Package storetest is a behavioural test suite shared by every storage
// backend.  Each backend's tests call Run with a constructor for a fresh,
// empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository"
	"github.com/iliyamo/signage-pairing/internal/service"
)

// Stores bundles the three collections of one backend.
type Stores struct {
	Users    service.UserStore
	Pairings service.PairingStore
	Players  service.PlayerStore
}

// base is second aligned so SQL round trips compare equal.
var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// Run executes the suite.  open is called once per subtest.
func Run(t *testing.T, open func(t *testing.T) Stores) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Stores)
	}{
		{"users/create and lookup", testUsers},
		{"users/duplicate email", testDuplicateEmail},
		{"pairings/declare supersedes", testDeclareSupersedes},
		{"pairings/pair", testPair},
		{"pairings/not waiting", testNotWaiting},
		{"pairings/duplicate device rolls back", testDuplicateDevice},
		{"pairings/concurrent pair", testConcurrentPair},
		{"players/touch", testTouch},
		{"players/list scoping", testListScoping},
		{"players/assign content", testAssignContent},
		{"players/stats and sweep", testStatsAndSweep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.fn(t, open(t)) })
	}
}

func newPlayer(org, name string, at time.Time) func(string) model.Player {
	return func(deviceID string) model.Player {
		return model.Player{
			PlayerID: "player-" + deviceID,
			Name:     name,
			OrgID:    org,
			Status:   model.PlayerOnline,
			PairedAt: at,
			LastSeen: at,
		}
	}
}

// pairDevice declares and consumes a code for deviceID in one step.
func pairDevice(t *testing.T, s Stores, deviceID, code, org string, at time.Time) model.Player {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Pairings.Declare(ctx, deviceID, code, at))
	p, err := s.Pairings.Pair(ctx, code, at, newPlayer(org, "Screen "+deviceID, at))
	require.NoError(t, err)
	return p
}

func testUsers(t *testing.T, s Stores) {
	ctx := context.Background()
	u := model.User{
		ID: "user-1", Email: "Admin@Example.com", PasswordHash: "hash",
		OrgID: "org-1", Company: "Acme", Plan: model.DefaultPlan, CreatedAt: base,
	}
	require.NoError(t, s.Users.Create(ctx, u))

	got, err := s.Users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, "admin@example.com", got.Email)
	assert.Equal(t, "org-1", got.OrgID)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "free", got.Plan)
	assert.True(t, base.Equal(got.CreatedAt))

	_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, s Stores) {
	ctx := context.Background()
	first := model.User{ID: "user-1", Email: "a@example.com", PasswordHash: "h", OrgID: "org-1", Plan: "free", CreatedAt: base}
	require.NoError(t, s.Users.Create(ctx, first))

	second := first
	second.ID, second.OrgID, second.Email = "user-2", "org-2", " A@example.com "
	assert.ErrorIs(t, s.Users.Create(ctx, second), repository.ErrEmailExists)

	got, err := s.Users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "org-1", got.OrgID)
}

func testDeclareSupersedes(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Pairings.Declare(ctx, "dev-1", "111111", base))

	req, err := s.Pairings.GetByCode(ctx, "111111")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", req.DeviceID)
	assert.Equal(t, model.PairingWaiting, req.Status)
	assert.Nil(t, req.PairedAt)

	// Same device, new code: the old code disappears.
	require.NoError(t, s.Pairings.Declare(ctx, "dev-1", "222222", base.Add(time.Second)))
	_, err = s.Pairings.GetByCode(ctx, "111111")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Same code, other device: the code now belongs to dev-2.
	require.NoError(t, s.Pairings.Declare(ctx, "dev-2", "222222", base.Add(2*time.Second)))
	req, err = s.Pairings.GetByCode(ctx, "222222")
	require.NoError(t, err)
	assert.Equal(t, "dev-2", req.DeviceID)

	// Re-declaring the identical pair is idempotent.
	require.NoError(t, s.Pairings.Declare(ctx, "dev-2", "222222", base.Add(3*time.Second)))
	req, err = s.Pairings.GetByCode(ctx, "222222")
	require.NoError(t, err)
	assert.Equal(t, "dev-2", req.DeviceID)
	assert.True(t, req.Waiting())
}

func testPair(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Pairings.Declare(ctx, "dev-1", "123456", base))

	at := base.Add(time.Minute)
	p, err := s.Pairings.Pair(ctx, "123456", at, newPlayer("org-1", "Lobby", at))
	require.NoError(t, err)
	assert.Equal(t, "dev-1", p.DeviceID)
	assert.Equal(t, "123456", p.PairingCode)
	assert.Equal(t, "org-1", p.OrgID)

	req, err := s.Pairings.GetByCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, model.PairingPaired, req.Status)
	require.NotNil(t, req.PairedAt)
	assert.True(t, at.Equal(*req.PairedAt))

	stored, err := s.Players.GetByDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, p.PlayerID, stored.PlayerID)
	assert.Equal(t, "Lobby", stored.Name)
	assert.Equal(t, "org-1", stored.OrgID)
	assert.True(t, at.Equal(stored.PairedAt))
	assert.Nil(t, stored.ContentURL)

	byID, err := s.Players.GetByID(ctx, p.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", byID.DeviceID)
}

func testNotWaiting(t *testing.T, s Stores) {
	ctx := context.Background()
	_, err := s.Pairings.Pair(ctx, "999999", base, newPlayer("org-1", "x", base))
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
	assert.ErrorIs(t, err, repository.ErrNotWaiting)

	pairDevice(t, s, "dev-1", "123456", "org-1", base)
	_, err = s.Pairings.Pair(ctx, "123456", base, newPlayer("org-2", "x", base))
	assert.ErrorIs(t, err, repository.ErrAlreadyPaired)
	assert.ErrorIs(t, err, repository.ErrNotWaiting)

	p, err := s.Players.GetByDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", p.OrgID)
}

func testDuplicateDevice(t *testing.T, s Stores) {
	ctx := context.Background()
	pairDevice(t, s, "dev-1", "111111", "org-1", base)

	// The device announces a new code although it already owns a player.
	require.NoError(t, s.Pairings.Declare(ctx, "dev-1", "222222", base))
	_, err := s.Pairings.Pair(ctx, "222222", base, func(deviceID string) model.Player {
		p := newPlayer("org-2", "dup", base)(deviceID)
		p.PlayerID = "player-second"
		return p
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateDevice)

	req, err := s.Pairings.GetByCode(ctx, "222222")
	require.NoError(t, err)
	assert.Equal(t, model.PairingWaiting, req.Status, "failed pairing must not consume the code")

	_, err = s.Players.GetByID(ctx, "player-second")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testConcurrentPair(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Pairings.Declare(ctx, "dev-1", "424242", base))

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Pairings.Pair(ctx, "424242", base, func(deviceID string) model.Player {
				p := newPlayer(fmt.Sprintf("org-%d", i), "racer", base)(deviceID)
				p.PlayerID = fmt.Sprintf("player-%d", i)
				return p
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range others {
		assert.True(t, errors.Is(err, repository.ErrNotWaiting), "unexpected error: %v", err)
	}
	all, err := s.Players.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testTouch(t *testing.T, s Stores) {
	ctx := context.Background()
	pairDevice(t, s, "dev-1", "123456", "org-1", base)

	later := base.Add(42 * time.Minute)
	p, err := s.Players.Touch(ctx, "dev-1", later)
	require.NoError(t, err)
	assert.True(t, later.Equal(p.LastSeen))
	assert.Equal(t, model.PlayerOnline, p.Status)

	_, err = s.Players.Touch(ctx, "dev-unknown", later)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListScoping(t *testing.T, s Stores) {
	ctx := context.Background()
	pairDevice(t, s, "dev-a1", "100001", "org-a", base)
	pairDevice(t, s, "dev-b1", "200001", "org-b", base.Add(time.Second))
	pairDevice(t, s, "dev-a2", "100002", "org-a", base.Add(2*time.Second))

	a, err := s.Players.ListByOrg(ctx, "org-a")
	require.NoError(t, err)
	require.Len(t, a, 2)
	assert.Equal(t, "dev-a1", a[0].DeviceID)
	assert.Equal(t, "dev-a2", a[1].DeviceID)

	none, err := s.Players.ListByOrg(ctx, "org-z")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	all, err := s.Players.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testAssignContent(t *testing.T, s Stores) {
	ctx := context.Background()
	p := pairDevice(t, s, "dev-1", "123456", "org-1", base)
	url := "https://example.com/menu.html"
	at := base.Add(time.Hour)

	err := s.Players.AssignContent(ctx, p.PlayerID, "org-2", &url, at)
	assert.ErrorIs(t, err, repository.ErrNotFound, "other organizations must not see the player")
	err = s.Players.AssignContent(ctx, "player-missing", "org-1", &url, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Players.GetByDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, got.ContentURL)

	require.NoError(t, s.Players.AssignContent(ctx, p.PlayerID, "org-1", &url, at))
	got, err = s.Players.GetByDevice(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, got.ContentURL)
	assert.Equal(t, url, *got.ContentURL)
	require.NotNil(t, got.ContentUpdatedAt)
	assert.True(t, at.Equal(*got.ContentUpdatedAt))

	// Assigning the same URL again still counts as a match.
	require.NoError(t, s.Players.AssignContent(ctx, p.PlayerID, "org-1", &url, at))

	require.NoError(t, s.Players.AssignContent(ctx, p.PlayerID, "org-1", nil, at))
	got, err = s.Players.GetByDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, got.ContentURL)
}

func testStatsAndSweep(t *testing.T, s Stores) {
	ctx := context.Background()
	pairDevice(t, s, "dev-1", "100001", "org-1", base)
	pairDevice(t, s, "dev-2", "100002", "org-1", base)
	pairDevice(t, s, "dev-3", "100003", "org-2", base)

	now := base.Add(30 * time.Minute)
	_, err := s.Players.Touch(ctx, "dev-1", now.Add(-5*time.Minute))
	require.NoError(t, err)
	_, err = s.Players.Touch(ctx, "dev-2", now.Add(-10*time.Minute))
	require.NoError(t, err)

	window := 10 * time.Minute
	total, online, err := s.Players.Stats(ctx, now.Add(-window))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, online, "the window boundary counts as online")

	n, err := s.Players.MarkOffline(ctx, now.Add(-window))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := s.Players.GetByDevice(ctx, "dev-3")
	require.NoError(t, err)
	assert.Equal(t, model.PlayerOffline, p.Status)
	p, err = s.Players.GetByDevice(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, model.PlayerOnline, p.Status)

	n, err = s.Players.MarkOffline(ctx, now.Add(-window))
	require.NoError(t, err)
	assert.Zero(t, n)
}
