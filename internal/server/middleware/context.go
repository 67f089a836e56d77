package middleware

import (
	"context"

	userdomain "rental-backoffice/backend/internal/user/domain"
)

type contextKey struct{ name string }

var (
	identityKey     = contextKey{"identity"}
	identitySinkKey = contextKey{"identity_sink"}
	clientIPKey     = contextKey{"client_ip"}
)

// Identity is the caller decoded from a verified access token.
type Identity struct {
	UserID string
	Role   userdomain.Role
}

// WithIdentity returns a context carrying id. Handlers read it back with IdentityFrom.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if sink, ok := ctx.Value(identitySinkKey).(*Identity); ok {
		*sink = id
	}
	return context.WithValue(ctx, identityKey, id)
}

// withIdentitySink makes a later WithIdentity call also copy the identity into sink, so
// outer middleware can see who the request was for.
func withIdentitySink(ctx context.Context, sink *Identity) context.Context {
	return context.WithValue(ctx, identitySinkKey, sink)
}

// IdentityFrom returns the identity attached by Authenticate and true if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// WithClientIP returns a context carrying the resolved client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP stored by the ClientIP middleware, or "unknown".
// Its signature matches audit.IPExtractor.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
