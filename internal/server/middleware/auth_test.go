package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-backoffice/backend/internal/platform/respond"
	"rental-backoffice/backend/internal/security"
	userdomain "rental-backoffice/backend/internal/user/domain"
)

func identityEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			t.Error("identity missing in downstream handler")
		}
		respond.JSON(w, http.StatusOK, map[string]string{"user_id": id.UserID, "role": string(id.Role)})
	})
}

func TestAuthenticate(t *testing.T) {
	tokens := security.NewTestTokenCodec()
	access, _, err := tokens.IssueAccess("u1", userdomain.RoleTenant)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, _ := tokens.IssueRefresh("u1", userdomain.RoleTenant)
	stale, _, _ := tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).IssueAccess("u1", userdomain.RoleTenant)

	testCases := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid", "Bearer " + access, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + access, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, respond.CodeUnauthenticated},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, respond.CodeUnauthenticated},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, respond.CodeUnauthenticated},
		{"expired", "Bearer " + stale, http.StatusUnauthorized, respond.CodeTokenExpired},
		{"garbage", "Bearer nope", http.StatusForbidden, respond.CodeForbidden},
		{"refresh token as access", "Bearer " + refresh, http.StatusForbidden, respond.CodeForbidden},
	}
	h := Authenticate(tokens)(identityEcho(t))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			if tc.wantErr == "" {
				var body map[string]string
				_ = json.NewDecoder(rec.Body).Decode(&body)
				if body["user_id"] != "u1" || body["role"] != "tenant" {
					t.Errorf("identity = %v", body)
				}
				return
			}
			var env respond.Error
			if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Code != tc.wantErr || env.Status != tc.wantCode {
				t.Errorf("envelope = %+v, want code %q", env, tc.wantErr)
			}
		})
	}
}

func TestExtractBearer(t *testing.T) {
	testCases := map[string]string{
		"Bearer abc":     "abc",
		"  BEARER  abc ": "abc",
		"Bearer":         "",
		"Token abc":      "",
		"":               "",
	}
	for in, want := range testCases {
		if got := extractBearer(in); got != want {
			t.Errorf("extractBearer(%q) = %q, want %q", in, got, want)
		}
	}
}
