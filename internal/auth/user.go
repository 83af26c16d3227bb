package auth

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts. Upsert is keyed by email so the admin
// bootstrap can run on every start.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, user User) (*User, error)
}
