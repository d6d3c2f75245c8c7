package filestore

import (
	"context"
	"time"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository"
)

// Pairings is the pairing request collection of a Store.
type Pairings struct{ s *Store }

// Declare drops requests sharing deviceID or code and appends a waiting one.
func (p *Pairings) Declare(_ context.Context, deviceID, code string, now time.Time) error {
	return p.s.update(func(d *document) error {
		kept := d.PairingRequests[:0]
		for _, r := range d.PairingRequests {
			if r.DeviceID != deviceID && r.PairingCode != code {
				kept = append(kept, r)
			}
		}
		d.PairingRequests = append(kept, model.PairingRequest{
			ID:          d.NextPairingID,
			DeviceID:    deviceID,
			PairingCode: code,
			Status:      model.PairingWaiting,
			CreatedAt:   now.UTC(),
		})
		d.NextPairingID++
		return nil
	})
}

func (p *Pairings) GetByCode(_ context.Context, code string) (req model.PairingRequest, err error) {
	err = repository.ErrNotFound
	p.s.view(func(d *document) {
		if i := requestIndex(d, code); i >= 0 {
			req, err = d.PairingRequests[i], nil
		}
	})
	return req, err
}

// Pair marks the waiting request for code as paired and appends the player in
// the same document write.
func (p *Pairings) Pair(_ context.Context, code string, now time.Time, newPlayer func(deviceID string) model.Player) (model.Player, error) {
	var created model.Player
	err := p.s.update(func(d *document) error {
		i := requestIndex(d, code)
		if i < 0 {
			return repository.ErrCodeNotFound
		}
		req := d.PairingRequests[i]
		if req.Status == model.PairingPaired {
			return repository.ErrAlreadyPaired
		}
		if !req.Waiting() {
			return repository.ErrNotWaiting
		}
		for _, existing := range d.Players {
			if existing.DeviceID == req.DeviceID {
				return repository.ErrDuplicateDevice
			}
		}
		pairedAt := now.UTC()
		req.Status = model.PairingPaired
		req.PairedAt = &pairedAt
		d.PairingRequests[i] = req

		created = newPlayer(req.DeviceID)
		created.DeviceID = req.DeviceID
		created.PairingCode = code
		d.Players = append(d.Players, created)
		return nil
	})
	if err != nil {
		return model.Player{}, err
	}
	return created, nil
}

func requestIndex(d *document, code string) int {
	for i, r := range d.PairingRequests {
		if r.PairingCode == code {
			return i
		}
	}
	return -1
}
