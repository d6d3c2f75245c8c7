// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/config"
	"github.com/iliyamo/signage-pairing/internal/handler"
	"github.com/iliyamo/signage-pairing/internal/middleware"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

// Deps is everything the HTTP surface needs.  Redis may be nil, which turns
// rate limiting and response caching into no-ops.
type Deps struct {
	Auth    *handler.AuthHandler
	Pairing *handler.PairingHandler
	Players *handler.PlayerHandler
	Health  *handler.HealthHandler
	Tokens  middleware.TokenVerifier

	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *zap.Logger
}

// New builds the echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.Observe(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d.Auth, d.rateLimit())
	RegisterDevice(e, d.Pairing, d.Players, d.rateLimit())
	RegisterAdmin(e, d.Pairing, d.Players, d.Tokens, d.Log)
	RegisterPublic(e, d.Players, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
	return e
}

func (d Deps) rateLimit() echo.MiddlewareFunc {
	return middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
}

// RegisterRoutes registers the service banner, health and metrics endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/", handler.Index)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers account registration and login under /api/auth.
// Both are rate limited to slow down credential stuffing.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterDevice registers the unauthenticated device endpoints.  Code
// announcement and pairing polls are rate limited because pairing codes are
// short enough to enumerate.
func RegisterDevice(e *echo.Echo, p *handler.PairingHandler, pl *handler.PlayerHandler, limit echo.MiddlewareFunc) {
	e.POST("/api/public/register-pairing", p.RegisterPairing, limit)
	e.POST("/api/player/check-pairing", p.CheckPairing, limit)
	// the device token travels in the body
	e.POST("/api/player/get-content", pl.GetContent)
}

// RegisterAdmin registers the organization admin endpoints.  All of them
// require an admin bearer token.
func RegisterAdmin(e *echo.Echo, p *handler.PairingHandler, pl *handler.PlayerHandler, tokens middleware.TokenVerifier, log *zap.Logger) {
	g := e.Group("/api/admin",
		middleware.JWTAuth(tokens, log),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.POST("/pair-device", p.PairDevice)
	g.GET("/players", pl.ListOrgPlayers)
	g.POST("/assign-content", pl.AssignContent)
}

// RegisterPublic registers the unscoped player listing.
func RegisterPublic(e *echo.Echo, pl *handler.PlayerHandler, cache echo.MiddlewareFunc) {
	e.GET("/api/public/players", pl.ListPublicPlayers, cache)
}
