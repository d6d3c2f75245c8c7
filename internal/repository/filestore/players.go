package filestore

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository"
)

// Players is the player collection of a Store.
type Players struct{ s *Store }

func (p *Players) GetByDevice(_ context.Context, deviceID string) (model.Player, error) {
	return p.find(func(x model.Player) bool { return x.DeviceID == deviceID })
}

func (p *Players) GetByID(_ context.Context, playerID string) (model.Player, error) {
	return p.find(func(x model.Player) bool { return x.PlayerID == playerID })
}

func (p *Players) find(match func(model.Player) bool) (found model.Player, err error) {
	err = repository.ErrNotFound
	p.s.view(func(d *document) {
		for _, x := range d.Players {
			if match(x) {
				found, err = x, nil
				return
			}
		}
	})
	return found, err
}

func (p *Players) Touch(_ context.Context, deviceID string, now time.Time) (model.Player, error) {
	var touched model.Player
	err := p.s.update(func(d *document) error {
		for i := range d.Players {
			if d.Players[i].DeviceID == deviceID {
				d.Players[i].LastSeen = now.UTC()
				d.Players[i].Status = model.PlayerOnline
				touched = d.Players[i]
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return touched, err
}

func (p *Players) ListByOrg(_ context.Context, orgID string) ([]model.Player, error) {
	return p.list(func(x model.Player) bool { return x.OrgID == orgID }), nil
}

func (p *Players) ListAll(_ context.Context) ([]model.Player, error) {
	return p.list(func(model.Player) bool { return true }), nil
}

func (p *Players) list(match func(model.Player) bool) []model.Player {
	out := []model.Player{}
	p.s.view(func(d *document) {
		for _, x := range d.Players {
			if match(x) {
				out = append(out, x)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PairedAt.Equal(out[j].PairedAt) {
			return out[i].PairedAt.Before(out[j].PairedAt)
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

func (p *Players) AssignContent(_ context.Context, playerID, orgID string, url *string, now time.Time) error {
	return p.s.update(func(d *document) error {
		for i := range d.Players {
			if d.Players[i].PlayerID == playerID && d.Players[i].OrgID == orgID {
				at := now.UTC()
				if url != nil {
					v := *url
					url = &v
				}
				d.Players[i].ContentURL = url
				d.Players[i].ContentUpdatedAt = &at
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (p *Players) Stats(_ context.Context, onlineSince time.Time) (total, online int, err error) {
	p.s.view(func(d *document) {
		total = len(d.Players)
		for _, x := range d.Players {
			if !x.LastSeen.Before(onlineSince) {
				online++
			}
		}
	})
	return total, online, nil
}

func (p *Players) MarkOffline(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := p.s.update(func(d *document) error {
		for i := range d.Players {
			if d.Players[i].Status == model.PlayerOnline && d.Players[i].LastSeen.Before(cutoff) {
				d.Players[i].Status = model.PlayerOffline
				n++
			}
		}
		return nil
	})
	return n, err
}
