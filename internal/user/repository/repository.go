package repository

import (
	"context"
	"errors"

	"rental-backoffice/backend/internal/user/domain"
)

var (
	// ErrUsernameTaken is returned by Create when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPhoneTaken is returned by Create when the phone number is already registered.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrNotFound is returned by mutating methods when the target user does not exist.
	ErrNotFound = errors.New("user not found")
)

// Repository defines persistence for users. Getters return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}
