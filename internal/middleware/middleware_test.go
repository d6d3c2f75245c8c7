package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signage-pairing/internal/config"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

func newAuthServer(tokens *utils.TokenIssuer) *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(tokens, nil), RequireRole(utils.RoleAdmin))
	g.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "org": OrgID(c), "role": Role(c)})
	})
	return e
}

func TestJWTAuth(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour, nil)
	other := utils.NewTokenIssuer("other-secret", time.Hour, nil)
	admin, err := tokens.Issue("user-1", "org-1", utils.RoleAdmin)
	require.NoError(t, err)
	device, err := tokens.Issue("dev-1", "org-1", utils.RoleDevice)
	require.NoError(t, err)
	forged, err := other.Issue("user-1", "org-1", utils.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"admin token", "Bearer " + admin.Token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + admin.Token, http.StatusUnauthorized},
		{"forged token", "Bearer " + forged.Token, http.StatusUnauthorized},
		{"device token", "Bearer " + device.Token, http.StatusUnauthorized},
	}
	e := newAuthServer(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user":"user-1","org":"org-1","role":"admin"}`, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestIdentityHelpersWithoutAuth(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Empty(t, UserID(c))
	assert.Empty(t, OrgID(c))
	c.Set(ctxOrgID, 42)
	assert.Empty(t, OrgID(c))
}

func TestCacheEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"players":[]}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"players":[]}`, string(body))

	_, _, _, ok = decodeEntry(bs[:5])
	assert.False(t, ok)
	_, _, _, ok = decodeEntry([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "smp:cache"}
	k1 := cacheKey(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, "/api/public/players", nil), httptest.NewRecorder()))
	k2 := cacheKey(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, "/api/public/players?x=1", nil), httptest.NewRecorder()))
	assert.NotEqual(t, k1, k2)
	assert.Regexp(t, `^smp:cache:[0-9a-f]{40}$`, k1)
}

func TestBodyRecorderStopsAtLimit(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
	_, _ = rec.Write([]byte("abc"))
	assert.False(t, rec.overflow)
	_, _ = rec.Write([]byte("def"))
	assert.True(t, rec.overflow)
	assert.Zero(t, rec.buf.Len())
}

func TestParseBucketResult(t *testing.T) {
	res, ok := parseBucketResult([]any{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, res.allowed)
	assert.Equal(t, 1500*time.Millisecond, res.retry)

	res, ok = parseBucketResult([]any{int64(1), int64(29), int64(0)})
	require.True(t, ok)
	assert.True(t, res.allowed)
	assert.Equal(t, int64(29), res.remaining)

	_, ok = parseBucketResult("nope")
	assert.False(t, ok)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	assert.Equal(t, "rl:ip:10.0.0.7:route:POST /api/auth/login",
		rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c))
	assert.Equal(t, "rl:ip:10.0.0.7:user:anon:route:POST /api/auth/login",
		rateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil),
		Observe(nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
