package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userdomain "rental-backoffice/backend/internal/user/domain"
)

func TestTokenCodec_IssueAndVerifyAccess(t *testing.T) {
	c := NewTestTokenCodec()
	access, exp, err := c.IssueAccess("u1", userdomain.RoleLandlord)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	claims, err := c.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != userdomain.RoleLandlord {
		t.Errorf("VerifyAccess: got subject=%q role=%q", claims.Subject, claims.Role)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestTokenCodec_IssuePair(t *testing.T) {
	c := NewTestTokenCodec()
	pair, err := c.IssuePair("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Errorf("refresh expiry %v should be after access expiry %v", pair.RefreshExpiresAt, pair.AccessExpiresAt)
	}
	claims, err := c.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != userdomain.RoleTenant {
		t.Errorf("VerifyRefresh: got subject=%q role=%q", claims.Subject, claims.Role)
	}
}

func TestTokenCodec_TokensAreUnique(t *testing.T) {
	c := NewTestTokenCodec()
	a, _, err := c.IssueRefresh("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	b, _, err := c.IssueRefresh("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if a == b {
		t.Fatal("two refresh tokens issued back to back must differ")
	}
}

func TestTokenCodec_KeysAreNotInterchangeable(t *testing.T) {
	c := NewTestTokenCodec()
	pair, err := c.IssuePair("u1", userdomain.RoleLandlord)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := c.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("refresh token accepted as access token: err = %v", err)
	}
	if _, err := c.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("access token accepted as refresh token: err = %v", err)
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	c := NewTestTokenCodec()
	access, _, err := c.IssueAccess("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	later := c.WithClock(func() time.Time { return time.Now().Add(31 * time.Minute) })
	if _, err := later.VerifyAccess(access); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyAccess after TTL: want ErrTokenExpired, got %v", err)
	}
	if _, err := c.VerifyAccess(access); err != nil {
		t.Errorf("VerifyAccess before TTL: %v", err)
	}
}

func TestTokenCodec_Malformed(t *testing.T) {
	c := NewTestTokenCodec()
	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "invalid-token"},
		{"three dots", "a.b.c"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.VerifyAccess(tc.token); !errors.Is(err, ErrTokenMalformed) {
				t.Errorf("VerifyAccess(%q): want ErrTokenMalformed, got %v", tc.token, err)
			}
		})
	}
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	c := NewTestTokenCodec()
	access, _, err := c.IssueAccess("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	parts := strings.Split(access, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := c.VerifyAccess(strings.Join(parts, ".")); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("tampered token: want ErrTokenMalformed, got %v", err)
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	c := NewTestTokenCodec()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: userdomain.RoleLandlord,
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.VerifyAccess(none); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("alg=none token: want ErrTokenMalformed, got %v", err)
	}
}

func TestTokenCodec_RejectsUnknownRole(t *testing.T) {
	c := NewTestTokenCodec()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.VerifyAccess(signed); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("unknown role: want ErrTokenMalformed, got %v", err)
	}
}

func TestTokenCodec_IssueRejectsInvalidInput(t *testing.T) {
	c := NewTestTokenCodec()
	if _, _, err := c.IssueAccess("", userdomain.RoleTenant); err == nil {
		t.Error("IssueAccess with empty subject should fail")
	}
	if _, _, err := c.IssueAccess("u1", "owner"); err == nil {
		t.Error("IssueAccess with unknown role should fail")
	}
}

func TestNewTokenCodec_KeyValidation(t *testing.T) {
	if _, err := NewTokenCodec(nil, []byte("r"), "iss", time.Minute, time.Hour); !errors.Is(err, ErrInvalidKeys) {
		t.Errorf("empty access key: want ErrInvalidKeys, got %v", err)
	}
	if _, err := NewTokenCodec([]byte("same"), []byte("same"), "iss", time.Minute, time.Hour); !errors.Is(err, ErrInvalidKeys) {
		t.Errorf("shared key: want ErrInvalidKeys, got %v", err)
	}
}
