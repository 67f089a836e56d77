package domain

import "time"

// Session is a live refresh-token record. Its existence is what makes the refresh
// token whose digest is TokenValue redeemable.
type Session struct {
	ID         string
	UserID     string
	TokenValue string // SHA-256 hex digest of the refresh token
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session's refresh token has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
