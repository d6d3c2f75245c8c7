package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/service"
)

// httpError maps a service error to a status and a short client message.
// Order matters: the pairing refinements are checked before ErrNotWaiting
// and the duplicate device before the generic conflict.
func httpError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
		if msg == err.Error() {
			msg = "invalid request"
		}
		return http.StatusBadRequest, msg
	case errors.Is(err, service.ErrAlreadyPaired):
		return http.StatusBadRequest, "this device is already paired"
	case errors.Is(err, service.ErrNotWaiting):
		return http.StatusBadRequest, "invalid or expired pairing code"
	case errors.Is(err, service.ErrDuplicateDevice):
		return http.StatusConflict, "device already has a player"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "player not found"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError answers with {"error": msg}.  Internal failures are logged with
// their cause, which never reaches the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	status, msg := httpError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}
