package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"store-backend/internal/apperr"
	"store-backend/internal/model"

	"github.com/google/uuid"
)

// CreateUser cria um usuário com um token de API novo.
func (s *Store) CreateUser(ctx context.Context, username string, staff bool) (model.User, error) {
	u := model.User{Username: username, Token: uuid.NewString(), Staff: staff}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, token, is_staff) VALUES (?, ?, ?)`,
		u.Username, u.Token, u.Staff)
	if err != nil {
		if isConstraint(err) {
			return model.User{}, fmt.Errorf("username %q: %w", username, apperr.ErrUsernameTaken)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("user id: %w", err)
	}
	return u, nil
}

// UserByToken devolve apperr.ErrNotFound quando o token não existe.
func (s *Store) UserByToken(ctx context.Context, token string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, token, is_staff FROM users WHERE token = ?`, token).
		Scan(&u.ID, &u.Username, &u.Token, &u.Staff)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("user by token: %w", err)
	}
	return u, nil
}
