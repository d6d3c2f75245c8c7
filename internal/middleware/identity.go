package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxOrgID  = "org_id"
	ctxRole   = "role"
)

// UserID returns the token subject of the authenticated caller, or "".
func UserID(c echo.Context) string { return ctxString(c, ctxUserID) }

// OrgID returns the organization of the authenticated caller, or "".
func OrgID(c echo.Context) string { return ctxString(c, ctxOrgID) }

// Role returns the token role of the authenticated caller, or "".
func Role(c echo.Context) string { return ctxString(c, ctxRole) }

func ctxString(c echo.Context, key string) string {
	if s, ok := c.Get(key).(string); ok {
		return s
	}
	return ""
}
