package handler // handler defines http handlers

import (
	"net/http" // status codes
	"time"     // timestamp of the health report

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/service"
)

const (
	apiName    = "SMP Digital Signage API"
	apiVersion = "2.0"
)

// HealthHandler reports liveness of the service and a player census.
type HealthHandler struct {
	Players *service.PlayerService
	Now     func() time.Time // clock; time.Now when nil
	Log     *zap.Logger
}

// Health returns {"status":"healthy","timestamp":...,"players":{"total":n,"online":m}}.
// A failing store turns the status into "degraded" with zero counts but keeps
// the 200 so load balancers only react to the process being gone.
func (h *HealthHandler) Health(c echo.Context) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	status := "healthy"
	total, online, err := h.Players.Stats(c.Request().Context())
	if err != nil {
		status = "degraded"
		if h.Log != nil {
			h.Log.Warn("health: player stats unavailable", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":    status,
		"timestamp": now().UTC().Format(time.RFC3339),
		"players":   echo.Map{"total": total, "online": online},
	})
}

// Index is the service banner served at "/".
func Index(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"name": apiName, "version": apiVersion, "status": "running"})
}
