package security

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userdomain "rental-backoffice/backend/internal/user/domain"
)

var (
	// ErrTokenExpired is returned when a token's signature is valid but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for any other verification failure (bad signature,
	// wrong algorithm, wrong issuer, missing subject or role, unparseable structure).
	ErrTokenMalformed = errors.New("token malformed")
	// ErrInvalidKeys is returned by NewTokenCodec when a key is empty or both keys are equal.
	ErrInvalidKeys = errors.New("access and refresh keys must be non-empty and distinct")
)

// Claims is the claim set carried by both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role userdomain.Role `json:"role"`
}

// TokenCodec signs and verifies HS256 bearer tokens. Access and refresh tokens
// use independent keys so a leaked access key cannot mint refresh tokens and
// vice versa.
type TokenCodec struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenPair is the result of issuing an access and a refresh token together.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// NewTokenCodec returns a TokenCodec. The two keys must be non-empty and distinct.
func NewTokenCodec(accessKey, refreshKey []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if len(accessKey) == 0 || len(refreshKey) == 0 || bytes.Equal(accessKey, refreshKey) {
		return nil, ErrInvalidKeys
	}
	return &TokenCodec{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads the current time from now.
// Used by tests to move the clock past a token's expiry.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue signs a token for subject and role with key, expiring ttl from now.
func (c *TokenCodec) Issue(subject string, role userdomain.Role, key []byte, ttl time.Duration) (string, time.Time, error) {
	if subject == "" || !role.Valid() {
		return "", time.Time{}, ErrTokenMalformed
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueAccess issues a short-lived access token.
func (c *TokenCodec) IssueAccess(subject string, role userdomain.Role) (string, time.Time, error) {
	return c.Issue(subject, role, c.accessKey, c.accessTTL)
}

// IssueRefresh issues a long-lived refresh token.
func (c *TokenCodec) IssueRefresh(subject string, role userdomain.Role) (string, time.Time, error) {
	return c.Issue(subject, role, c.refreshKey, c.refreshTTL)
}

// IssuePair issues an access token and a refresh token for the same subject.
func (c *TokenCodec) IssuePair(subject string, role userdomain.Role) (*TokenPair, error) {
	access, accessExp, err := c.IssueAccess(subject, role)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := c.IssueRefresh(subject, role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks the token's signature against key, its issuer and expiry, and
// that subject and role are present. Returns ErrTokenExpired or ErrTokenMalformed
// on failure; never a partial claim set.
func (c *TokenCodec) Verify(tokenString string, key []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenMalformed, claims.Role)
	}
	return claims, nil
}

// VerifyAccess verifies an access token.
func (c *TokenCodec) VerifyAccess(tokenString string) (*Claims, error) {
	return c.Verify(tokenString, c.accessKey)
}

// VerifyRefresh verifies a refresh token.
func (c *TokenCodec) VerifyRefresh(tokenString string) (*Claims, error) {
	return c.Verify(tokenString, c.refreshKey)
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
