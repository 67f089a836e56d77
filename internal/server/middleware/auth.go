package middleware

import (
	"errors"
	"net/http"
	"strings"

	"rental-backoffice/backend/internal/metrics"
	"rental-backoffice/backend/internal/platform/respond"
	"rental-backoffice/backend/internal/security"
)

const bearerPrefix = "bearer "

// Guard rejection reasons, used as metric labels.
const (
	ReasonMissingToken  = "missing_token"
	ReasonTokenExpired  = "token_expired"
	ReasonInvalidToken  = "invalid_token"
	ReasonForbiddenRole = "forbidden_role"
)

// Authenticate returns middleware that verifies the Bearer access token and attaches the
// decoded Identity to the request context. A missing or malformed header yields 401
// unauthenticated, an expired token 401 token_expired, and any other verification failure
// 403 forbidden. No store lookup is made.
func Authenticate(tokens *security.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				metrics.RecordGuardRejection(ReasonMissingToken)
				respond.Unauthenticated(w, "missing or invalid authorization")
				return
			}
			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				if errors.Is(err, security.ErrTokenExpired) {
					metrics.RecordGuardRejection(ReasonTokenExpired)
					respond.WriteError(w, http.StatusUnauthorized, respond.CodeTokenExpired, "access token expired")
					return
				}
				metrics.RecordGuardRejection(ReasonInvalidToken)
				respond.Forbidden(w, "forbidden")
				return
			}
			ctx := WithIdentity(r.Context(), Identity{UserID: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
