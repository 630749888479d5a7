package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loomwork/loom/observability"
)

// responseWriter wraps http.ResponseWriter to capture the status code
// a handler actually wrote, for metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// metricsMiddleware records one RecordHTTPRequest call per request,
// labeled with chi's matched route pattern rather than the raw path so
// that e.g. every /v1/team/state request aggregates under one series.
// A nil metrics recorder makes this a no-op wrapper.
func metricsMiddleware(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			m.RecordHTTPRequest(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
