package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/signage-pairing/internal/model"
)

// declareAttempts bounds retries when two declarations for the same code or
// device race on the unique indexes or deadlock on their gap locks.
const declareAttempts = 3

// PairingRepo owns the pairing_requests table.  It also runs the pairing
// transaction, which is the only place a player row is created.
type PairingRepo struct{ DB *sql.DB }

func NewPairingRepo(db *sql.DB) *PairingRepo { return &PairingRepo{DB: db} }

// Declare replaces every request that shares deviceID or code with a fresh
// waiting request.  The last declaration wins.
func (r *PairingRepo) Declare(ctx context.Context, deviceID, code string, now time.Time) error {
	var err error
	for i := 0; i < declareAttempts; i++ {
		if err = r.declareOnce(ctx, deviceID, code, now); !isUniqueViolation(err) && !isDeadlock(err) {
			return err
		}
	}
	return fmt.Errorf("declare pairing: %w", err)
}

func (r *PairingRepo) declareOnce(ctx context.Context, deviceID, code string, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pairing_requests WHERE device_id = ? OR pairing_code = ?`, deviceID, code); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pairing_requests (device_id, pairing_code, status, created_at) VALUES (?, ?, ?, ?)`,
		deviceID, code, string(model.PairingWaiting), dbTime(now)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByCode returns the request currently registered under code.
func (r *PairingRepo) GetByCode(ctx context.Context, code string) (model.PairingRequest, error) {
	var (
		req      model.PairingRequest
		status   string
		pairedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, device_id, pairing_code, status, created_at, paired_at FROM pairing_requests WHERE pairing_code = ? LIMIT 1`,
		code).Scan(&req.ID, &req.DeviceID, &req.PairingCode, &status, &req.CreatedAt, &pairedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PairingRequest{}, ErrNotFound
	}
	if err != nil {
		return model.PairingRequest{}, err
	}
	req.Status = model.PairingStatus(status)
	req.CreatedAt = req.CreatedAt.UTC()
	if pairedAt.Valid {
		t := pairedAt.Time.UTC()
		req.PairedAt = &t
	}
	return req, nil
}

// Pair consumes code.  Inside one transaction it moves the waiting request to
// paired with a conditional update, so of several concurrent callers exactly
// one sees an affected row, then inserts the player built by newPlayer for
// the request's device.  Any failure rolls both changes back.
func (r *PairingRepo) Pair(ctx context.Context, code string, now time.Time, newPlayer func(deviceID string) model.Player) (model.Player, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Player{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE pairing_requests SET status = ?, paired_at = ? WHERE pairing_code = ? AND status = ?`,
		string(model.PairingPaired), dbTime(now), code, string(model.PairingWaiting))
	if err != nil {
		return model.Player{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Player{}, err
	}
	if n == 0 {
		return model.Player{}, notWaitingReason(ctx, tx, code)
	}

	var deviceID string
	if err := tx.QueryRowContext(ctx,
		`SELECT device_id FROM pairing_requests WHERE pairing_code = ?`, code).Scan(&deviceID); err != nil {
		return model.Player{}, err
	}

	p := newPlayer(deviceID)
	p.DeviceID = deviceID
	p.PairingCode = code
	if err := insertPlayer(ctx, tx, p); err != nil {
		return model.Player{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Player{}, err
	}
	committed = true
	return p, nil
}

// notWaitingReason distinguishes an unknown code from one already paired.
func notWaitingReason(ctx context.Context, tx *sql.Tx, code string) error {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM pairing_requests WHERE pairing_code = ?`, code).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	case err != nil:
		return err
	case model.PairingStatus(status) == model.PairingPaired:
		return ErrAlreadyPaired
	}
	return ErrNotWaiting
}
