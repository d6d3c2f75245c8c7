package model

import "time"

// PairingStatus is the state of a pairing request.  Requests move from
// waiting to paired exactly once and never back.
type PairingStatus string

const (
	PairingWaiting PairingStatus = "waiting"
	PairingPaired  PairingStatus = "paired"
)

// PairingRequest is an unpaired device's declaration that it is showing
// PairingCode.  At most one request exists per code and per device.
type PairingRequest struct {
	ID          int64         `json:"id"`
	DeviceID    string        `json:"device_id"`
	PairingCode string        `json:"pairing_code"`
	Status      PairingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	PairedAt    *time.Time    `json:"paired_at,omitempty"`
}

// Waiting reports whether the request can still be consumed.
func (r PairingRequest) Waiting() bool { return r.Status == PairingWaiting }
