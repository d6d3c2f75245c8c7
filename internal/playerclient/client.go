// Package playerclient speaks the device side of the pairing protocol: it
// announces a pairing code, waits for an admin to claim it and then polls
// for content.
package playerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrRejected is returned when the server answers a device request with a
// client error.
var ErrRejected = errors.New("request rejected")

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Log:     log,
	}
}

type PairingStatus struct {
	Paired     bool   `json:"paired"`
	Token      string `json:"token"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type Content struct {
	ContentURL      string `json:"content_url"`
	RefreshInterval int    `json:"refresh_interval"`
	UpdatedAt       string `json:"updated_at"`
}

// Declare announces code for deviceID.
func (c *Client) Declare(ctx context.Context, deviceID, code string) error {
	return c.post(ctx, "/api/public/register-pairing",
		map[string]string{"device_id": deviceID, "pairing_code": code}, nil)
}

func (c *Client) CheckPairing(ctx context.Context, deviceID, code string) (PairingStatus, error) {
	var st PairingStatus
	err := c.post(ctx, "/api/player/check-pairing",
		map[string]string{"device_id": deviceID, "pairing_code": code}, &st)
	return st, err
}

func (c *Client) GetContent(ctx context.Context, deviceID, token string) (Content, error) {
	var ct Content
	err := c.post(ctx, "/api/player/get-content",
		map[string]string{"device_id": deviceID, "token": token}, &ct)
	return ct, err
}

// WaitForPairing polls check-pairing every interval until the code is
// claimed or ctx ends.
func (c *Client) WaitForPairing(ctx context.Context, deviceID, code string, interval time.Duration) (PairingStatus, error) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		st, err := c.CheckPairing(ctx, deviceID, code)
		if err != nil {
			return PairingStatus{}, err
		}
		if st.Paired {
			return st, nil
		}
		c.Log.Debug("waiting for pairing", zap.String("device_id", deviceID), zap.String("code", code))
		select {
		case <-ctx.Done():
			return PairingStatus{}, ctx.Err()
		case <-t.C:
		}
	}
}

// PollContent fetches content until ctx ends, calling onChange whenever the
// URL differs from the previous poll.  The server's refresh_interval sets
// the pace unless override is positive.
func (c *Client) PollContent(ctx context.Context, deviceID, token string, override time.Duration, onChange func(Content)) error {
	var last string
	for {
		ct, err := c.GetContent(ctx, deviceID, token)
		if err != nil {
			return err
		}
		if ct.ContentURL != last {
			last = ct.ContentURL
			onChange(ct)
		}
		wait := time.Duration(ct.RefreshInterval) * time.Second
		if override > 0 {
			wait = override
		}
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode < 500 {
			return fmt.Errorf("%w: %s: %d %s", ErrRejected, path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("post %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
