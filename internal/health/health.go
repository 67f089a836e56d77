// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rental-backoffice/backend/internal/platform/respond"
)

const checkTimeout = 2 * time.Second

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA role evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc is a named readiness dependency.
type CheckFunc func(ctx context.Context) error

// Handler reports process liveness and dependency readiness.
type Handler struct {
	checks map[string]CheckFunc
	log    *zap.Logger
}

// NewHandler returns a Handler. Nil db or policy are skipped; extra adds further checks
// such as the Redis session store.
func NewHandler(db Pinger, policy PolicyChecker, extra map[string]CheckFunc, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	checks := make(map[string]CheckFunc, len(extra)+2)
	if db != nil {
		checks["database"] = db.PingContext
	}
	if policy != nil {
		checks["policy"] = policy.HealthCheck
	}
	for name, fn := range extra {
		if fn != nil {
			checks[name] = fn
		}
	}
	return &Handler{checks: checks, log: log}
}

// Healthz always answers 200 while the process is serving.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz runs every check and answers 503 when any fails. Failure details stay in the logs.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = "unavailable"
			ready = false
			continue
		}
		results[name] = "ok"
	}
	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respond.JSON(w, code, map[string]any{"status": status, "checks": results})
}
