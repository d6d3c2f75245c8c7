package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/service"
)

// AuthHandler serves account registration and login.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Auth: auth, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Company string `json:"company"`
	OrgID   string `json:"org_id"`
	Plan    string `json:"plan"`
}

type authResp struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	User    userPart `json:"user"`
}

func newAuthResp(s service.Session) authResp {
	return authResp{
		Success: true,
		Token:   s.Token.Token,
		User:    newUserPart(s.User),
	}
}

func newUserPart(u model.User) userPart {
	return userPart{UserID: u.ID, Email: u.Email, Company: u.Company, OrgID: u.OrgID, Plan: u.Plan}
}

// Register: create the account and its organization, return an admin token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.Register(ctx, req.Email, req.Password, req.Company)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, newAuthResp(s))
}

// Login: verify credentials and return a fresh admin token.  A rejected
// login carries no token field at all.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newAuthResp(s))
}
