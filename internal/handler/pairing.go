package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/middleware"
	"github.com/iliyamo/signage-pairing/internal/service"
)

// PairingHandler serves both sides of the pairing handshake: the device
// announcing and polling its code, and the admin consuming it.
type PairingHandler struct {
	Pairing *service.PairingService
	Log     *zap.Logger
}

func NewPairingHandler(pairing *service.PairingService, log *zap.Logger) *PairingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PairingHandler{Pairing: pairing, Log: log}
}

type devicePairingReq struct {
	DeviceID    string `json:"device_id"`
	PairingCode string `json:"pairing_code"`
}

type checkPairingResp struct {
	Paired     bool   `json:"paired"`
	Token      string `json:"token,omitempty"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
}

type pairDeviceReq struct {
	PairingCode string `json:"pairing_code"`
	PlayerName  string `json:"player_name"`
	Location    string `json:"location"`
}

// RegisterPairing: a device announces the code it is displaying.
func (h *PairingHandler) RegisterPairing(c echo.Context) error {
	var req devicePairingReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Pairing.Declare(ctx, req.DeviceID, req.PairingCode); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Pairing request registered"})
}

// CheckPairing: a device polls whether its code was consumed.  The answer
// is always 200; anything but a match reads {"paired": false}.
func (h *PairingHandler) CheckPairing(c echo.Context) error {
	var req devicePairingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, checkPairingResp{})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Pairing.CheckStatus(ctx, req.DeviceID, req.PairingCode)
	if err != nil {
		h.Log.Error("check pairing failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		return c.JSON(http.StatusOK, checkPairingResp{})
	}
	if !st.Paired {
		return c.JSON(http.StatusOK, checkPairingResp{})
	}
	return c.JSON(http.StatusOK, checkPairingResp{
		Paired:     true,
		Token:      st.Token.Token,
		PlayerID:   st.PlayerID,
		PlayerName: st.PlayerName,
	})
}

// PairDevice: an admin consumes a code and adopts the device into their
// organization.
func (h *PairingHandler) PairDevice(c echo.Context) error {
	var req pairDeviceReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Pairing.Pair(ctx, service.PairInput{
		Code:     req.PairingCode,
		OrgID:    middleware.OrgID(c),
		Name:     req.PlayerName,
		Location: req.Location,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "player_id": p.PlayerID, "player_name": p.Name})
}
