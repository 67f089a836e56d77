package security

import (
	"crypto/sha256"
	"encoding/base64"
)

// DigestRefreshToken returns the lookup key under which a refresh token's session is stored:
// the unpadded base64url SHA-256 of the token. Stores only ever see this digest, so a leaked
// sessions table or Redis dump cannot be replayed as refresh tokens.
func DigestRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
