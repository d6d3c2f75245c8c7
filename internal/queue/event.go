// Package queue carries domain events over RabbitMQ: the payloads, a
// publisher used by the services, and a consumer that appends every event to
// an audit log file.
package queue

import (
	"time"

	"github.com/iliyamo/signage-pairing/internal/model"
)

// Queue names.  The routing key equals the queue name on the default
// exchange.
const (
	PlayerPairedQueue    = "player.paired"
	ContentAssignedQueue = "player.content_assigned"
)

// PlayerPairedEvent is published after a pairing transaction committed.
type PlayerPairedEvent struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	DeviceID    string `json:"device_id"`
	OrgID       string `json:"org_id"`
	PairingCode string `json:"pairing_code"`
	Location    string `json:"location,omitempty"`
	PairedAt    string `json:"paired_at"`
}

// ContentAssignedEvent is published after an admin changed what a player
// displays.  An empty ContentURL means the assignment was cleared.
type ContentAssignedEvent struct {
	PlayerID   string `json:"player_id"`
	DeviceID   string `json:"device_id"`
	OrgID      string `json:"org_id"`
	ContentURL string `json:"content_url"`
	AssignedAt string `json:"assigned_at"`
}

func NewPlayerPairedEvent(p model.Player) PlayerPairedEvent {
	return PlayerPairedEvent{
		PlayerID:    p.PlayerID,
		PlayerName:  p.Name,
		DeviceID:    p.DeviceID,
		OrgID:       p.OrgID,
		PairingCode: p.PairingCode,
		Location:    p.Location,
		PairedAt:    p.PairedAt.UTC().Format(time.RFC3339),
	}
}

func NewContentAssignedEvent(p model.Player, at time.Time) ContentAssignedEvent {
	if p.ContentUpdatedAt != nil {
		at = *p.ContentUpdatedAt
	}
	return ContentAssignedEvent{
		PlayerID:   p.PlayerID,
		DeviceID:   p.DeviceID,
		OrgID:      p.OrgID,
		ContentURL: p.Content(),
		AssignedAt: at.UTC().Format(time.RFC3339),
	}
}
