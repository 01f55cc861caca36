package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

func (s *MySQL) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	query := `SELECT id, email, display_name FROM users WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, storeErr("get user", err)
	}
	return u, nil
}

func (s *MySQL) FindUserByContact(ctx context.Context, contact string) (models.User, error) {
	var u models.User
	query := `SELECT id, email, display_name FROM users WHERE email = ?`
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(contact))).
		Scan(&u.ID, &u.Email, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, storeErr("find user by contact", err)
	}
	return u, nil
}

// Auth-layer queries. These sit outside the engine's data-access contract
// but share the pool and the users table.

func (s *MySQL) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (email, password, display_name, created_at) VALUES (?, ?, ?, NOW())`
	res, err := s.db.ExecContext(ctx, query, strings.ToLower(u.Email), u.Password, u.DisplayName)
	if err != nil {
		return storeErr("create user", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return storeErr("create user", err)
	}
	return nil
}

func (s *MySQL) GetUserWithPassword(ctx context.Context, email string) (models.User, error) {
	var u models.User
	query := `SELECT id, email, password, display_name FROM users WHERE email = ?`
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(email)).
		Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, storeErr("get user with password", err)
	}
	return u, nil
}
