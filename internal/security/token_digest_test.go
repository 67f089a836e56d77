package security

import (
	"strings"
	"testing"

	userdomain "rental-backoffice/backend/internal/user/domain"
)

func TestDigestRefreshToken(t *testing.T) {
	a := DigestRefreshToken("token-1")
	if a != DigestRefreshToken("token-1") {
		t.Error("digest is not deterministic")
	}
	if len(a) != 43 {
		t.Errorf("digest length = %d, want 43", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("digest %q is not url-safe", a)
	}
	if a == DigestRefreshToken("token-2") {
		t.Error("different tokens produced the same digest")
	}
}

func TestDigestRefreshToken_IssuedTokensDiffer(t *testing.T) {
	c := NewTestTokenCodec()
	p1, err := c.IssuePair("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	p2, err := c.IssuePair("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if DigestRefreshToken(p1.RefreshToken) == DigestRefreshToken(p2.RefreshToken) {
		t.Error("two issued refresh tokens share a digest")
	}
}
