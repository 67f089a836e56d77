package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	audithandler "rental-backoffice/backend/internal/audit/handler"
	auditrepo "rental-backoffice/backend/internal/audit/repository"
	"rental-backoffice/backend/internal/health"
	identityhandler "rental-backoffice/backend/internal/identity/handler"
	identityservice "rental-backoffice/backend/internal/identity/service"
	"rental-backoffice/backend/internal/platform/rbac"
	"rental-backoffice/backend/internal/policy/engine"
	"rental-backoffice/backend/internal/security"
	"rental-backoffice/backend/internal/server/middleware"
	"rental-backoffice/backend/internal/telemetry"
	userdomain "rental-backoffice/backend/internal/user/domain"
)

// Deps holds the collaborators wired into the HTTP router.
type Deps struct {
	// Auth and Tokens are required.
	Auth   *identityservice.AuthService
	Tokens *security.TokenCodec
	// Roles decides role checks; StaticEvaluator when nil.
	Roles engine.RoleEvaluator
	// AuditRepo backs GET /api/v1/audit. If nil, the route is not mounted.
	AuditRepo auditrepo.Repository
	// Health serves /healthz and /readyz. If nil, a handler with no checks is used.
	Health *health.Handler
	// Emitter receives per-request telemetry events inline; pass a *telemetry.Async. Optional.
	Emitter telemetry.EventEmitter
	Cookie  identityhandler.CookieConfig
	// CORSOrigins lists origins allowed to call the API with credentials.
	CORSOrigins []string
	Logger      *zap.Logger
}

// probePaths are excluded from per-request telemetry.
var probePaths = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// NewRouter builds the HTTP handler for the whole API.
//
// Route map:
//   - POST /api/v1/auth/login, /refresh, /logout   public, cookie based refresh
//   - GET  /api/v1/auth/me, POST /change-password  authenticated
//   - POST /api/v1/users, GET /api/v1/audit        landlord only
//   - GET  /healthz, /readyz, /metrics             probes
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	roles := deps.Roles
	if roles == nil {
		roles = engine.StaticEvaluator{}
	}
	healthHandler := deps.Health
	if healthHandler == nil {
		healthHandler = health.NewHandler(nil, nil, nil, log)
	}
	auth := identityhandler.NewHandler(deps.Auth, deps.Cookie, log)
	requireAuth := middleware.Authenticate(deps.Tokens)
	landlordOnly := rbac.RequireRole(roles, userdomain.RoleLandlord, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientIPMiddleware)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.Telemetry(deps.Emitter, probePaths))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", auth.Login)
			r.Post("/refresh", auth.Refresh)
			r.Post("/logout", auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", auth.Me)
				r.Post("/change-password", auth.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, landlordOnly)
			r.Post("/users", auth.CreateUser)
			if deps.AuditRepo != nil {
				r.Get("/audit", audithandler.NewHandler(deps.AuditRepo, log).List)
			}
		})
	})

	return otelhttp.NewHandler(r, "rental-backoffice-http",
		otelhttp.WithFilter(func(req *http.Request) bool { return !probePaths[req.URL.Path] }),
	)
}
