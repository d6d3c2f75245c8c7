package filestore

import (
	"context"
	"strings"

	"github.com/iliyamo/signage-pairing/internal/model"
	"github.com/iliyamo/signage-pairing/internal/repository"
)

// Users is the user collection of a Store.
type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = user.CreatedAt.UTC()
	return u.s.update(func(d *document) error {
		for _, existing := range d.Users {
			if existing.Email == user.Email {
				return repository.ErrEmailExists
			}
		}
		d.Users = append(d.Users, user)
		return nil
	})
}

func (u *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return u.find(func(x model.User) bool { return x.Email == email })
}

func (u *Users) find(match func(model.User) bool) (found model.User, err error) {
	err = repository.ErrNotFound
	u.s.view(func(d *document) {
		for _, x := range d.Users {
			if match(x) {
				found, err = x, nil
				return
			}
		}
	})
	return found, err
}
