package repository

import (
	"context"
	"errors"
	"time"

	"rental-backoffice/backend/internal/session/domain"
)

// ErrDuplicateToken is returned by Create when a session already exists for the token.
var ErrDuplicateToken = errors.New("session token already exists")

// Repository defines persistence for sessions. Tokens are opaque keys; the store never
// inspects their contents.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByToken returns the session for token, or nil if none exists.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	// DeleteByToken removes the session for token and reports whether a row was removed.
	DeleteByToken(ctx context.Context, token string) (bool, error)
	// ConsumeByToken atomically removes and returns the session matching both token and userID.
	// Returns nil when no such session exists. Of concurrent callers presenting the same token,
	// at most one receives the session.
	ConsumeByToken(ctx context.Context, token, userID string) (*domain.Session, error)
	// DeleteAllByUser removes every session for userID and returns how many were removed.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes sessions whose ExpiresAt is at or before before.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
