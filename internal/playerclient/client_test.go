package playerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer pairs the device after a fixed number of polls and then serves
// a content URL that changes once.
type fakeServer struct {
	mu       sync.Mutex
	declared map[string]string
	checks   int
	polls    int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/public/register-pairing":
		if body["device_id"] == "" || body["pairing_code"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "device_id and pairing_code are required"})
			return
		}
		f.declared[body["device_id"]] = body["pairing_code"]
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	case "/api/player/check-pairing":
		f.checks++
		if f.checks < 3 || f.declared[body["device_id"]] != body["pairing_code"] {
			_ = json.NewEncoder(w).Encode(map[string]any{"paired": false})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"paired": true, "token": "tok-" + body["device_id"], "player_id": "player-1"})
	case "/api/player/get-content":
		if body["token"] != "tok-"+body["device_id"] {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
			return
		}
		f.polls++
		url := "data:text/html,placeholder"
		if f.polls > 2 {
			url = "https://menu.example.com"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content_url": url, "refresh_interval": 300})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFake(t *testing.T) (*fakeServer, *Client) {
	f := &fakeServer{declared: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, New(srv.URL+"/", nil)
}

func TestClient_PairingFlow(t *testing.T) {
	_, c := newFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Declare(ctx, "D1", "123456"))
	st, err := c.WaitForPairing(ctx, "D1", "123456", 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, st.Paired)
	assert.Equal(t, "tok-D1", st.Token)
	assert.Equal(t, "player-1", st.PlayerID)

	ct, err := c.GetContent(ctx, "D1", st.Token)
	require.NoError(t, err)
	assert.Equal(t, 300, ct.RefreshInterval)
}

func TestClient_Rejections(t *testing.T) {
	_, c := newFake(t)
	ctx := context.Background()

	err := c.Declare(ctx, "", "123456")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "device_id and pairing_code are required")

	_, err = c.GetContent(ctx, "D1", "forged")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestClient_WaitForPairingStopsOnCancel(t *testing.T) {
	_, c := newFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// never declared, so never paired
	_, err := c.WaitForPairing(ctx, "D9", "000000", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_PollContentReportsChanges(t *testing.T) {
	_, c := newFake(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []string
	err := c.PollContent(ctx, "D1", "tok-D1", time.Millisecond, func(ct Content) {
		seen = append(seen, ct.ContentURL)
		if len(seen) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"data:text/html,placeholder", "https://menu.example.com"}, seen)
}
