package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/metrics"
	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

// AuthService registers and authenticates organization admins.
type AuthService struct {
	users      UserStore
	tokens     *utils.TokenIssuer
	bcryptCost int
	now        func() time.Time
	log        *zap.Logger
}

func NewAuthService(users UserStore, tokens *utils.TokenIssuer, bcryptCost int, now func() time.Time, log *zap.Logger) *AuthService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, now: now, log: log}
}

// Session is an authenticated admin together with a fresh token.
type Session struct {
	User  model.User
	Token utils.Token
}

// Register creates an account and its organization and signs the admin in.
func (s *AuthService) Register(ctx context.Context, email, password, company string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return Session{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}
	company = strings.TrimSpace(company)
	if company == "" {
		company = model.DefaultCompany
	}
	if len(password) > MaxPasswordBytes {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return Session{}, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordBytes)
	}
	if err := firstErr(
		checkLen("email", email, MaxEmailLen),
		checkLen("company", company, MaxCompanyLen),
	); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return Session{}, err
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		ID:           utils.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		OrgID:        utils.NewOrgID(),
		Company:      company,
		Plan:         model.DefaultPlan,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return Session{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	tok, err := s.tokens.Issue(u.ID, u.OrgID, utils.RoleAdmin)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	s.log.Info("account registered", zap.String("user_id", u.ID), zap.String("org_id", u.OrgID))
	return Session{User: u, Token: tok}, nil
}

// Authenticate checks credentials.  Unknown emails and wrong passwords both
// yield ErrInvalidCredentials after the same amount of bcrypt work.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return Session{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.BurnPasswordCheck(password)
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return Session{}, ErrInvalidCredentials
	case err != nil:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return Session{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(u.ID, u.OrgID, utils.RoleAdmin)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return Session{User: u, Token: tok}, nil
}
