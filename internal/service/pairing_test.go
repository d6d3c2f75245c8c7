package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

func TestDeclare_Validation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.pairing.Declare(context.Background(), "", "123456"), ErrValidation)
	assert.ErrorIs(t, f.pairing.Declare(context.Background(), "dev-1", "  "), ErrValidation)
}

func TestDeclare_RejectsOversizedOrReservedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, tc := range []struct{ device, code string }{
		{strings.Repeat("d", 51), "123456"},
		{"dev-1", "12345678901"},
		{"dev/1", "123456"},
		{"dev+1", "123456"},
		{"dev#", "123456"},
		{"dev\x001", "123456"},
	} {
		assert.ErrorIs(t, f.pairing.Declare(ctx, tc.device, tc.code), ErrValidation, "device=%q code=%q", tc.device, tc.code)
	}

	require.NoError(t, f.pairing.Declare(ctx, strings.Repeat("d", 50), "1234567890"))
	_, err := f.pairing.Pair(ctx, PairInput{Code: "1234567890", OrgID: "org-1"})
	assert.NoError(t, err)
}

func TestPair_RejectsOversizedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pairing.Declare(ctx, "dev-1", "123456"))

	for _, in := range []PairInput{
		{Code: "12345678901", OrgID: "org-1"},
		{Code: "123456", OrgID: "org-1", Name: strings.Repeat("n", 121)},
		{Code: "123456", OrgID: "org-1", Location: strings.Repeat("l", 121)},
	} {
		_, err := f.pairing.Pair(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	}

	// the code is still waiting
	p, err := f.pairing.Pair(ctx, PairInput{Code: "123456", OrgID: "org-1", Name: strings.Repeat("n", 120)})
	require.NoError(t, err)
	assert.Equal(t, "dev-1", p.DeviceID)
}

func TestPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pairing.Declare(ctx, "dev-1", "123456"))

	p, err := f.pairing.Pair(ctx, PairInput{Code: " 123456 ", OrgID: "org-1", Location: "Lobby"})
	require.NoError(t, err)
	assert.Equal(t, "dev-1", p.DeviceID)
	assert.Equal(t, "org-1", p.OrgID)
	assert.Equal(t, model.DefaultPlayerName, p.Name)
	assert.Equal(t, "Lobby", p.Location)
	assert.Equal(t, "123456", p.PairingCode)
	assert.Regexp(t, `^player-`, p.PlayerID)
	assert.Equal(t, f.clock.Now(), p.PairedAt)

	require.Len(t, f.events.paired, 1)
	assert.Equal(t, p.PlayerID, f.events.paired[0].PlayerID)

	_, err = f.pairing.Pair(ctx, PairInput{Code: "123456", OrgID: "org-2"})
	assert.ErrorIs(t, err, ErrAlreadyPaired)
	assert.ErrorIs(t, err, ErrNotWaiting)
	_, err = f.pairing.Pair(ctx, PairInput{Code: "000000", OrgID: "org-2"})
	assert.ErrorIs(t, err, ErrCodeNotFound)
	_, err = f.pairing.Pair(ctx, PairInput{Code: "", OrgID: "org-2"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, f.events.paired, 1)
}

func TestPair_DuplicateDeviceIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pair(t, "dev-1", "111111", "org-1")
	require.NoError(t, f.pairing.Declare(ctx, "dev-1", "222222"))

	_, err := f.pairing.Pair(ctx, PairInput{Code: "222222", OrgID: "org-1"})
	assert.ErrorIs(t, err, ErrDuplicateDevice)
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, errors.Is(err, ErrNotWaiting))
}

func TestPair_ConcurrentAdminsOneWinner(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pairing.Declare(context.Background(), "dev-1", "777777"))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(org string) {
			defer wg.Done()
			p, err := f.pairing.Pair(context.Background(), PairInput{Code: "777777", OrgID: org})
			if err != nil {
				assert.ErrorIs(t, err, ErrNotWaiting)
				return
			}
			mu.Lock()
			winners = append(winners, p.OrgID)
			mu.Unlock()
		}(fmt.Sprintf("org-%d", i))
	}
	wg.Wait()
	require.Len(t, winners, 1)

	list, err := f.players.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, winners[0], list[0].OrgID)
}

func TestCheckStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pairing.Declare(ctx, "dev-1", "123456"))
	st, err := f.pairing.CheckStatus(ctx, "dev-1", "123456")
	require.NoError(t, err)
	assert.False(t, st.Paired, "waiting request is not paired yet")

	p, err := f.pairing.Pair(ctx, PairInput{Code: "123456", OrgID: "org-1", Name: "Menu board"})
	require.NoError(t, err)

	st, err = f.pairing.CheckStatus(ctx, "dev-1", "123456")
	require.NoError(t, err)
	require.True(t, st.Paired)
	assert.Equal(t, p.PlayerID, st.PlayerID)
	assert.Equal(t, "Menu board", st.PlayerName)

	claims, err := f.tokens.Verify(st.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", claims.Subject)
	assert.Equal(t, "org-1", claims.Org)
	assert.Equal(t, utils.RoleDevice, claims.Role)

	for _, tc := range []struct{ device, code string }{
		{"dev-2", "123456"},
		{"dev-1", "654321"},
		{"", ""},
	} {
		st, err := f.pairing.CheckStatus(ctx, tc.device, tc.code)
		require.NoError(t, err)
		assert.False(t, st.Paired, "device=%q code=%q", tc.device, tc.code)
		assert.Empty(t, st.Token.Token)
	}
}

// A device that re-announces a code after being paired loses its token path
// under the old code but keeps its player.
func TestCheckStatus_AfterRedeclare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pair(t, "dev-1", "123456", "org-1")
	require.NoError(t, f.pairing.Declare(ctx, "dev-1", "999999"))

	st, err := f.pairing.CheckStatus(ctx, "dev-1", "123456")
	require.NoError(t, err)
	assert.False(t, st.Paired)
}
