// Package metrics defines Prometheus metrics for the auth session lifecycle.
//
// All metrics are registered with the default Prometheus registry and served on
// GET /metrics.
//
// Metric naming follows Prometheus conventions:
//   - rental_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by the login and refresh counters.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeReplayed           = "replayed"
	OutcomeError              = "error"
)

var (
	// LoginTotal counts login attempts by outcome.
	LoginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_auth_login_total",
			Help: "Total login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// RefreshTotal counts refresh rotations by outcome. "replayed" means the token verified
	// but no live session matched it.
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_auth_refresh_total",
			Help: "Total refresh token rotations by outcome.",
		},
		[]string{"outcome"},
	)

	// LogoutTotal counts logouts by whether a session row was actually removed.
	LogoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_auth_logout_total",
			Help: "Total logouts by whether a session was removed.",
		},
		[]string{"removed"},
	)

	// GuardRejectionsTotal counts requests rejected by the request guard by reason.
	GuardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_auth_guard_rejections_total",
			Help: "Total requests rejected by the authentication or role gate.",
		},
		[]string{"reason"},
	)

	// SessionsPrunedTotal counts expired sessions removed by the pruner.
	SessionsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rental_auth_sessions_pruned_total",
			Help: "Total expired sessions removed by the pruner.",
		},
	)

	// HTTPRequestDurationSeconds is a histogram of request latency by method and status.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		LoginTotal,
		RefreshTotal,
		LogoutTotal,
		GuardRejectionsTotal,
		SessionsPrunedTotal,
		HTTPRequestDurationSeconds,
	)
}

// RecordLogin records a single login attempt.
func RecordLogin(outcome string) {
	LoginTotal.WithLabelValues(outcome).Inc()
}

// RecordRefresh records a single refresh attempt.
func RecordRefresh(outcome string) {
	RefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordLogout records a logout.
func RecordLogout(removed bool) {
	LogoutTotal.WithLabelValues(strconv.FormatBool(removed)).Inc()
}

// RecordGuardRejection records a request rejected by the guard.
func RecordGuardRejection(reason string) {
	GuardRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordPruned adds n pruned sessions.
func RecordPruned(n int64) {
	if n > 0 {
		SessionsPrunedTotal.Add(float64(n))
	}
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method string, status int, d time.Duration) {
	HTTPRequestDurationSeconds.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}
