package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLiveness(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		lastSeen time.Time
		want     PlayerStatus
	}{
		{"just now", now, PlayerOnline},
		{"9 minutes ago", now.Add(-9 * time.Minute), PlayerOnline},
		{"exactly 10 minutes ago", now.Add(-10 * time.Minute), PlayerOnline},
		{"10 minutes and 1s ago", now.Add(-10*time.Minute - time.Second), PlayerOffline},
		{"11 minutes ago", now.Add(-11 * time.Minute), PlayerOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Liveness(tt.lastSeen, now, DefaultLivenessWindow))
		})
	}
}

func TestPlayer_WithLivenessDoesNotMutate(t *testing.T) {
	now := time.Now().UTC()
	p := Player{Status: PlayerOnline, LastSeen: now.Add(-time.Hour)}
	got := p.WithLiveness(now, DefaultLivenessWindow)
	assert.Equal(t, PlayerOffline, got.Status)
	assert.Equal(t, PlayerOnline, p.Status)
}

func TestPlayer_Content(t *testing.T) {
	url := "https://example.com/menu"
	assert.Equal(t, "", Player{}.Content())
	assert.Equal(t, url, Player{ContentURL: &url}.Content())
}
