package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/signage-pairing/internal/repository"
)

// Errors returned by the services.  Handlers map each one to a status code
// and a short stable message; anything else is an internal failure.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")

	// ErrNotWaiting and its two refinements come straight from the storage
	// layer so errors.Is works across the boundary without translation.
	ErrNotWaiting    = repository.ErrNotWaiting
	ErrCodeNotFound  = repository.ErrCodeNotFound
	ErrAlreadyPaired = repository.ErrAlreadyPaired
)

// ErrDuplicateDevice is a Conflict raised when the device of a pairing code
// already owns a player.
var ErrDuplicateDevice = fmt.Errorf("%w: %w", ErrConflict, repository.ErrDuplicateDevice)
