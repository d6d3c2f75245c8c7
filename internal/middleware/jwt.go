package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/utils"
)

// TokenVerifier is satisfied by *utils.TokenIssuer.
type TokenVerifier interface {
	Verify(raw string) (utils.Claims, error)
}

// JWTAuth validates the Bearer token of the request and stores its subject,
// organization and role in the context (see UserID, OrgID, Role).  Every
// failure produces the same 401 body; the reason is only logged.
func JWTAuth(tokens TokenVerifier, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authorization required"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := tokens.Verify(raw)
			if err != nil {
				log.Debug("bearer token rejected", zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ctxUserID, claims.Subject)
			c.Set(ctxOrgID, claims.Org)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}
