package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/simonjohansson/taskboard/internal/model"
)

type UserRepository struct {
	q querier
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	var (
		u       model.User
		isAdmin int
	)
	err := r.q.QueryRowContext(ctx, `SELECT id, name, email, is_admin FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	u.IsAdmin = isAdmin == 1
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, email, is_admin FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var (
			u       model.User
			isAdmin int
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &isAdmin); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.IsAdmin = isAdmin == 1
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Name == "" || user.Email == "" {
		return fmt.Errorf("name and email are required")
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO users (name, email, is_admin) VALUES (?, ?, ?)`,
		user.Name, user.Email, boolToInt(user.IsAdmin))
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return nil
}
