// Package telemetry holds routekeeper's Prometheus metrics and the HTTP
// router that exposes them.
package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. Collectors are registered on the
// registerer passed to NewMetrics so tests can use a private registry.
type Metrics struct {
	Previews            *prometheus.CounterVec   // kind, outcome
	PreviewDuration     *prometheus.HistogramVec // kind
	PreviewsShared      prometheus.Counter
	Unresolved          prometheus.Counter
	CompletionConflicts *prometheus.CounterVec // source
	Completions         *prometheus.CounterVec // mode
	JoinsFired          prometheus.Counter
	RPCs                *prometheus.CounterVec // method, code
	RPCDuration         *prometheus.HistogramVec
	httpReqs            *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Previews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routekeeper_previews_total",
			Help: "Preview evaluations by kind and outcome",
		}, []string{"kind", "outcome"}),
		PreviewDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "routekeeper_preview_duration_seconds",
			Help:    "Preview evaluation duration",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"kind"}),
		PreviewsShared: f.NewCounter(prometheus.CounterOpts{
			Name: "routekeeper_previews_shared_total",
			Help: "Previews answered from a concurrent identical request",
		}),
		Unresolved: f.NewCounter(prometheus.CounterOpts{
			Name: "routekeeper_unresolved_assignments_total",
			Help: "Assignments with no matching user and no fallback role",
		}),
		CompletionConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routekeeper_completion_conflicts_total",
			Help: "Completion attempts rejected because the step was already completed",
		}, []string{"source"}),
		Completions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routekeeper_completions_total",
			Help: "Accepted step completions",
		}, []string{"mode"}),
		JoinsFired: f.NewCounter(prometheus.CounterOpts{
			Name: "routekeeper_joins_fired_total",
			Help: "Parallel gateway joins that reached their completion threshold",
		}),
		RPCs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routekeeper_rpc_requests_total",
			Help: "gRPC requests by method and status code",
		}, []string{"method", "code"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "routekeeper_rpc_duration_seconds",
			Help:    "gRPC request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		httpReqs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routekeeper_http_requests_total",
			Help: "Requests to the metrics and health endpoints",
		}, []string{"route", "status"}),
	}
}

// ObservePreview records one preview.
func (m *Metrics) ObservePreview(kind, outcome string, d time.Duration, shared bool) {
	if m == nil {
		return
	}
	m.Previews.WithLabelValues(kind, outcome).Inc()
	m.PreviewDuration.WithLabelValues(kind).Observe(d.Seconds())
	if shared {
		m.PreviewsShared.Inc()
	}
}

// ObserveRPC records one gRPC call.
func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.RPCs.WithLabelValues(method, code).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(d.Seconds())
}

// NewRouter serves /metrics from gatherer and /healthz from health.
// A nil health func always reports ok.
func NewRouter(m *Metrics, gatherer prometheus.Gatherer, health func() error) http.Handler {
	r := chi.NewRouter()
	r.Use(m.middleware)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpReqs.WithLabelValues(route, http.StatusText(ww.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
