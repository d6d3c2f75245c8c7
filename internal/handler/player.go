package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/middleware"
	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/service"
)

// PlayerHandler serves player listings, content assignment and the device
// content poll.
type PlayerHandler struct {
	Players *service.PlayerService
	Log     *zap.Logger
}

func NewPlayerHandler(players *service.PlayerService, log *zap.Logger) *PlayerHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlayerHandler{Players: players, Log: log}
}

// playerResp is the wire shape of a player.  content_url is null when
// nothing is assigned.
type playerResp struct {
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	DeviceID    string  `json:"device_id"`
	OrgID       string  `json:"org_id"`
	Status      string  `json:"status"`
	PairedAt    string  `json:"paired_at"`
	LastSeen    string  `json:"last_seen"`
	ContentURL  *string `json:"content_url"`
	Location    string  `json:"location"`
	PairingCode string  `json:"pairing_code"`
}

func newPlayerResp(p model.Player) playerResp {
	return playerResp{
		PlayerID:    p.PlayerID,
		Name:        p.Name,
		DeviceID:    p.DeviceID,
		OrgID:       p.OrgID,
		Status:      string(p.Status),
		PairedAt:    p.PairedAt.UTC().Format(time.RFC3339),
		LastSeen:    p.LastSeen.UTC().Format(time.RFC3339),
		ContentURL:  p.ContentURL,
		Location:    p.Location,
		PairingCode: p.PairingCode,
	}
}

func playersResp(ps []model.Player) echo.Map {
	out := make([]playerResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPlayerResp(p))
	}
	return echo.Map{"players": out}
}

type getContentReq struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

type contentResp struct {
	ContentURL      string `json:"content_url"`
	RefreshInterval int    `json:"refresh_interval"`
	UpdatedAt       string `json:"updated_at"`
}

type assignContentReq struct {
	PlayerID   string `json:"player_id"`
	ContentURL string `json:"content_url"`
}

// GetContent: a paired device polls for what to display.
func (h *PlayerHandler) GetContent(c echo.Context) error {
	var req getContentReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	content, err := h.Players.ResolveContent(ctx, req.DeviceID, req.Token)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, contentResp{
		ContentURL:      content.URL,
		RefreshInterval: content.RefreshInterval,
		UpdatedAt:       content.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// ListOrgPlayers: the players of the caller's organization.
func (h *PlayerHandler) ListOrgPlayers(c echo.Context) error {
	ps, err := h.Players.ListByOrg(c.Request().Context(), middleware.OrgID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, playersResp(ps))
}

// ListPublicPlayers: every player of every organization.  Deliberately
// unauthenticated.
func (h *PlayerHandler) ListPublicPlayers(c echo.Context) error {
	ps, err := h.Players.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, playersResp(ps))
}

// AssignContent: point a player of the caller's organization at a URL.
func (h *PlayerHandler) AssignContent(c echo.Context) error {
	var req assignContentReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Players.AssignContent(ctx, req.PlayerID, middleware.OrgID(c), req.ContentURL); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
