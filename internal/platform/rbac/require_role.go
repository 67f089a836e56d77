package rbac

import (
	"net/http"

	"go.uber.org/zap"

	"rental-backoffice/backend/internal/metrics"
	"rental-backoffice/backend/internal/platform/respond"
	"rental-backoffice/backend/internal/policy/engine"
	"rental-backoffice/backend/internal/server/middleware"
	userdomain "rental-backoffice/backend/internal/user/domain"
)

// RequireRole returns middleware admitting only callers whose role satisfies required according
// to evaluator. It must run after middleware.Authenticate: a request without an attached identity
// is a routing mistake and yields 500. A denied role yields 403 forbidden, and an evaluator error 500.
func RequireRole(evaluator engine.RoleEvaluator, required userdomain.Role, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := middleware.IdentityFrom(r.Context())
			if !ok {
				log.Error("rbac: no identity on request; RequireRole mounted without Authenticate",
					zap.String("path", r.URL.Path))
				respond.Internal(w)
				return
			}
			allowed, err := evaluator.Allow(r.Context(), id.Role, required)
			if err != nil {
				log.Error("rbac: role evaluation failed", zap.String("user_id", id.UserID), zap.Error(err))
				respond.Internal(w)
				return
			}
			if !allowed {
				metrics.RecordGuardRejection(middleware.ReasonForbiddenRole)
				respond.Forbidden(w, string(required)+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
