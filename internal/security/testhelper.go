package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
	testIssuer        = "test-issuer"
)

// NewTestTokenCodec returns a TokenCodec using embedded test secrets, a 30m
// access TTL and a 24h refresh TTL. For unit tests only.
func NewTestTokenCodec() *TokenCodec {
	c, err := NewTokenCodec([]byte(testAccessSecret), []byte(testRefreshSecret), testIssuer, 30*time.Minute, 24*time.Hour)
	if err != nil {
		panic(err)
	}
	return c
}

// NewTestHasher returns a Hasher at bcrypt's minimum cost so tests stay fast.
func NewTestHasher() *Hasher {
	return NewHasher(4)
}
