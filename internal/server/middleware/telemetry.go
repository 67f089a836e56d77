package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"rental-backoffice/backend/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	RequestID  string `json:"request_id,omitempty"`
}

// Telemetry emits an http_request event after each request. emitter is called inline, so
// production wiring passes a telemetry.Async. Errors are ignored. If emitter is nil the
// middleware passes requests through untouched.
// skipPaths lists URL paths that are not emitted (probes, metrics scrapes).
func Telemetry(emitter telemetry.EventEmitter, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			// The identity is attached further down the chain, so the inner handler reports it back.
			var id Identity
			next.ServeHTTP(ww, r.WithContext(withIdentitySink(r.Context(), &id)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			meta, _ := json.Marshal(httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   ClientIP(r.Context()),
				RequestID:  chimw.GetReqID(r.Context()),
			})
			_ = emitter.Emit(r.Context(), &telemetry.Event{
				EventType: telemetry.EventHTTPRequest,
				Source:    "http_middleware",
				UserID:    id.UserID,
				Role:      string(id.Role),
				Metadata:  meta,
				CreatedAt: start.UTC(),
			})
		})
	}
}
