package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"scan-gallery/internal/metrics"
)

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz"},
	}
}

// itemRoutes are the API operations whose final segment is an item name.
// Item names are timestamps, so recording them verbatim would mint one
// label value per gallery item.
var itemRoutes = map[string]bool{
	"thumbnail": true,
	"preview":   true,
	"file":      true,
	"size":      true,
	"item":      true,
}

// Metrics returns a middleware that records request count, duration and
// in-flight gauge per method and normalized route.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			route := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
		})
	}
}

// normalizePath collapses per-item segments: /api/thumbnail/<name> becomes
// /api/thumbnail/{name}.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	// expected shape: "" / "api" / <op> / <name>
	if len(parts) >= 4 && parts[1] == "api" && itemRoutes[parts[2]] {
		return strings.Join(parts[:3], "/") + "/{name}"
	}
	return path
}
