package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/signage-pairing/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u.  The unique index on email makes concurrent duplicate
// registrations fail with ErrEmailExists regardless of ordering.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, org_id, company, plan, created_at) VALUES (?,?,?,?,?,?,?)",
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.OrgID, u.Company, u.Plan, dbTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return ErrEmailExists
	}
	return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT id,email,password_hash,org_id,company,plan,created_at FROM users WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg string) (model.User, error) {
	var (
		u       model.User
		company sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.OrgID, &company, &u.Plan, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Company = company.String
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
