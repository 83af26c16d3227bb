package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/server/internal/auth"
)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *UserRepository) queryer() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, email, name, role, password_hash, created_at
  FROM users
 WHERE lower(email) = lower($1)`, email)

	var user auth.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Upsert(ctx context.Context, user auth.User) (*auth.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (email, name, role, password_hash)
VALUES (lower($1), $2, $3, $4)
ON CONFLICT (email) DO UPDATE
   SET name = EXCLUDED.name, role = EXCLUDED.role, password_hash = EXCLUDED.password_hash
RETURNING id, email, name, role, password_hash, created_at`,
		user.Email, user.Name, user.Role, user.PasswordHash)

	var saved auth.User
	err := row.Scan(&saved.ID, &saved.Email, &saved.Name, &saved.Role, &saved.PasswordHash, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &saved, nil
}
