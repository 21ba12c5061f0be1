// Package metrics provides Prometheus metrics for the sakura server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/sakura/pkg/domain"
)

var (
	// Parser metrics
	chunkBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sakura_parser_chunk_bytes_total",
			Help: "Total bytes fed to parsers",
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sakura_parser_transitions_total",
			Help: "Parser state transitions",
		},
		[]string{"from", "to"},
	)

	filesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sakura_files_completed_total",
			Help: "File actions closed",
		},
	)

	fileSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sakura_file_size_bytes",
			Help:    "Size of completed files",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	shellCommandsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sakura_shell_commands_total",
			Help: "Distinct shell commands recorded",
		},
	)

	artifactsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sakura_artifacts_completed_total",
			Help: "Artifacts whose close tag was seen",
		},
	)

	// Session metrics
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sakura_sessions_active",
			Help: "Number of live sessions",
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sakura_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sakura_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sakura_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	sseEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sakura_sse_events_total",
			Help: "Total SSE events written",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Hooks returns parser lifecycle hooks that record metrics.
func Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnChunk: func(e *domain.ChunkEvent) {
			chunkBytesTotal.Add(float64(e.Bytes))
		},
		OnTransition: func(e *domain.TransitionEvent) {
			transitionsTotal.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnFileComplete: func(e *domain.FileEvent) {
			filesCompletedTotal.Inc()
			fileSizeBytes.Observe(float64(e.Size))
		},
		OnShellCommand: func(*domain.ShellEvent) {
			shellCommandsTotal.Inc()
		},
		OnArtifactComplete: func(*domain.ArtifactEvent) {
			artifactsCompletedTotal.Inc()
		},
	}
}

// SetSessionsActive sets the number of live sessions.
func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

// SSEConnected tracks an SSE connection; call the returned func when it ends.
func SSEConnected() func() {
	sseConnectionsActive.Inc()
	return sseConnectionsActive.Dec
}

// RecordSSEEvent counts one written SSE event.
func RecordSSEEvent() {
	sseEventsTotal.Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Middleware records every request under its chi route pattern, keeping label
// cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		RecordHTTPRequest(r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
