// Package repository implements the persistence contract on top of
// database/sql.  The same repositories serve MySQL and SQLite; the only
// dialect-specific piece is recognising unique-key violations.
//
// The sentinel errors below are shared by every backend (the JSON document
// store in repository/filestore returns them too) so that services can
// translate storage outcomes without knowing which engine is configured.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the addressed record does not exist.  Org
// scoped lookups also return it for records owned by another organization.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateDevice is returned when a device already owns a player.
var ErrDuplicateDevice = errors.New("device already has a player")

// ErrNotWaiting is returned when a pairing code has no waiting request.  The
// two variants below wrap it so callers can match either precisely or with
// errors.Is(err, ErrNotWaiting).
var ErrNotWaiting = errors.New("no waiting pairing request")

var (
	ErrCodeNotFound  = fmt.Errorf("%w: unknown pairing code", ErrNotWaiting)
	ErrAlreadyPaired = fmt.Errorf("%w: pairing code already paired", ErrNotWaiting)
)
