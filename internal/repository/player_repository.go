package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/signage-pairing/internal/model"
)

// PlayerRepo provides data access to the players table.  Status is stored
// for indexing only; callers derive liveness from last_seen.
type PlayerRepo struct{ DB *sql.DB }

func NewPlayerRepo(db *sql.DB) *PlayerRepo { return &PlayerRepo{DB: db} }

const playerColumns = `player_id, name, device_id, org_id, status, paired_at, last_seen,
	content_url, content_updated_at, location, pairing_code`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertPlayer writes p through ex, which is the pairing transaction when
// called from PairingRepo.Pair.
func insertPlayer(ctx context.Context, ex execer, p model.Player) error {
	var contentUpdated any
	if p.ContentUpdatedAt != nil {
		contentUpdated = dbTime(*p.ContentUpdatedAt)
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO players (`+playerColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.PlayerID, p.Name, p.DeviceID, p.OrgID, string(p.Status), dbTime(p.PairedAt), dbTime(p.LastSeen),
		p.ContentURL, contentUpdated, p.Location, p.PairingCode)
	if isUniqueViolation(err) {
		return ErrDuplicateDevice
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(s rowScanner) (model.Player, error) {
	var (
		p              model.Player
		status         string
		content        sql.NullString
		contentUpdated sql.NullTime
	)
	if err := s.Scan(&p.PlayerID, &p.Name, &p.DeviceID, &p.OrgID, &status, &p.PairedAt, &p.LastSeen,
		&content, &contentUpdated, &p.Location, &p.PairingCode); err != nil {
		return model.Player{}, err
	}
	p.Status = model.PlayerStatus(status)
	p.PairedAt = p.PairedAt.UTC()
	p.LastSeen = p.LastSeen.UTC()
	if content.Valid {
		p.ContentURL = &content.String
	}
	if contentUpdated.Valid {
		t := contentUpdated.Time.UTC()
		p.ContentUpdatedAt = &t
	}
	return p, nil
}

// GetByDevice fetches the player bound to deviceID.
func (r *PlayerRepo) GetByDevice(ctx context.Context, deviceID string) (model.Player, error) {
	p, err := scanPlayer(r.DB.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE device_id=? LIMIT 1`, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, ErrNotFound
	}
	return p, err
}

// GetByID fetches a player by id regardless of organization.
func (r *PlayerRepo) GetByID(ctx context.Context, playerID string) (model.Player, error) {
	p, err := scanPlayer(r.DB.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE player_id=? LIMIT 1`, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, ErrNotFound
	}
	return p, err
}

// Touch records a poll from deviceID.  Concurrent touches are last writer
// wins, which is fine because every writer stores "now".
func (r *PlayerRepo) Touch(ctx context.Context, deviceID string, now time.Time) (model.Player, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE players SET last_seen=?, status=? WHERE device_id=?`,
		dbTime(now), string(model.PlayerOnline), deviceID)
	if err != nil {
		return model.Player{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Player{}, err
	} else if n == 0 {
		return model.Player{}, ErrNotFound
	}
	return r.GetByDevice(ctx, deviceID)
}

// ListByOrg returns the players owned by orgID, oldest pairing first.
func (r *PlayerRepo) ListByOrg(ctx context.Context, orgID string) ([]model.Player, error) {
	return r.list(ctx, `SELECT `+playerColumns+` FROM players WHERE org_id=? ORDER BY paired_at, player_id`, orgID)
}

// ListAll returns every player across organizations.
func (r *PlayerRepo) ListAll(ctx context.Context) ([]model.Player, error) {
	return r.list(ctx, `SELECT `+playerColumns+` FROM players ORDER BY paired_at, player_id`)
}

func (r *PlayerRepo) list(ctx context.Context, query string, args ...any) ([]model.Player, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	players := []model.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

// AssignContent sets the content of playerID if, and only if, it belongs to
// orgID.  A nil url clears the assignment.  Players of other organizations
// yield ErrNotFound, exactly like missing ones.
func (r *PlayerRepo) AssignContent(ctx context.Context, playerID, orgID string, url *string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE players SET content_url=?, content_updated_at=? WHERE player_id=? AND org_id=?`,
		url, dbTime(now), playerID, orgID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts all players and those seen at or after onlineSince.
func (r *PlayerRepo) Stats(ctx context.Context, onlineSince time.Time) (total, online int, err error) {
	err = r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN last_seen >= ? THEN 1 ELSE 0 END), 0) FROM players`,
		dbTime(onlineSince)).Scan(&total, &online)
	return total, online, err
}

// MarkOffline flips persisted status to offline for players not seen since
// cutoff and returns how many rows changed.  The last_seen predicate keeps a
// concurrent Touch from being overwritten.
func (r *PlayerRepo) MarkOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE players SET status=? WHERE status=? AND last_seen < ?`,
		string(model.PlayerOffline), string(model.PlayerOnline), dbTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
