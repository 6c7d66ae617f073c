package service

import (
	"context"
	"errors"
	"strings"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/store"
)

// AddUser registers a user for the operator CLI. Credentials are handled
// outside this service.
func (s *Service) AddUser(ctx context.Context, name, email string, admin bool) (model.User, error) {
	user := model.User{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), IsAdmin: admin}
	if user.Name == "" {
		return model.User{}, newError(CodeValidation, "Name is required", nil)
	}
	if !strings.Contains(user.Email, "@") {
		return model.User{}, newError(CodeValidation, "A valid email is required", nil)
	}
	err := s.store.InTx(ctx, func(repos Repositories) error {
		if err := repos.Users().Insert(ctx, &user); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return newError(CodeValidation, "Email address already in use", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.User{}, s.fail("add user", err)
	}
	s.logger.Info("user added", "user_id", user.ID, "admin", user.IsAdmin)
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.store.View(ctx, func(repos Repositories) error {
		var err error
		users, err = repos.Users().List(ctx)
		return err
	})
	if err != nil {
		return nil, s.fail("list users", err)
	}
	return users, nil
}

// GetUser resolves a token identity, used when issuing tokens.
func (s *Service) GetUser(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	err := s.store.View(ctx, func(repos Repositories) error {
		var err error
		user, err = repos.Users().GetByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return newError(CodeNotFound, "User not found", err)
		}
		return err
	})
	if err != nil {
		return model.User{}, s.fail("get user", err)
	}
	return user, nil
}
