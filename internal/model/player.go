package model

import "time"

// PlayerStatus is the derived liveness of a player.
type PlayerStatus string

const (
	PlayerOnline  PlayerStatus = "online"
	PlayerOffline PlayerStatus = "offline"
)

// DefaultLivenessWindow is how long after its last poll a player still
// counts as online.
const DefaultLivenessWindow = 10 * time.Minute

// DefaultPlayerName is used when the admin pairs a device without naming it.
const DefaultPlayerName = "New Player"

// Player is a paired device owned by an organization.
type Player struct {
	PlayerID         string       `json:"player_id"`
	Name             string       `json:"name"`
	DeviceID         string       `json:"device_id"`
	OrgID            string       `json:"org_id"`
	Status           PlayerStatus `json:"status"` // persisted copy, reconciled by the sweep; read Liveness instead
	PairedAt         time.Time    `json:"paired_at"`
	LastSeen         time.Time    `json:"last_seen"`
	ContentURL       *string      `json:"content_url,omitempty"`
	ContentUpdatedAt *time.Time   `json:"content_updated_at,omitempty"`
	Location         string       `json:"location"`
	PairingCode      string       `json:"pairing_code"`
}

// Liveness derives the online/offline state from LastSeen.  A player is
// online while now-LastSeen is at most window; the boundary itself counts as
// online.
func Liveness(lastSeen, now time.Time, window time.Duration) PlayerStatus {
	if now.Sub(lastSeen) <= window {
		return PlayerOnline
	}
	return PlayerOffline
}

// WithLiveness returns a copy of p whose Status is recomputed for now.
func (p Player) WithLiveness(now time.Time, window time.Duration) Player {
	p.Status = Liveness(p.LastSeen, now, window)
	return p
}

// Content returns the assigned content URL, or "" when none is assigned.
func (p Player) Content() string {
	if p.ContentURL == nil {
		return ""
	}
	return *p.ContentURL
}
