package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service. All methods are
// safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	snippetOperationsTotal *prometheus.CounterVec

	rateLimitedTotal prometheus.Counter

	knownModels map[string]bool
}

// NewMetrics creates the collectors on a private registry, along with the
// Go runtime and process collectors. The model is client-supplied, so
// generation metrics label any model outside knownModels as "other".
func NewMetrics(knownModels ...string) *Metrics {
	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		knownModels: make(map[string]bool, len(knownModels)),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codegen_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codegen_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codegen_generations_total",
				Help: "Upstream code generation calls by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "codegen_generation_duration_seconds",
				Help: "Upstream code generation latency in seconds",
				// LLM calls take seconds, not milliseconds.
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
			},
			[]string{"model"},
		),

		snippetOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codegen_snippet_operations_total",
				Help: "Snippet store operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegen_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}

	for _, id := range knownModels {
		m.knownModels[id] = true
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.generationsTotal,
		m.generationDuration,
		m.snippetOperationsTotal,
		m.rateLimitedTotal,
	)

	return m
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latencies. The route label is chi's
// route pattern (e.g. /api/snippets/{id}) so ids never become label values;
// unmatched requests share the "unmatched" label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveGeneration implements service.GenerationRecorder.
func (m *Metrics) ObserveGeneration(model, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if !m.knownModels[model] {
		model = "other"
	}
	m.generationsTotal.WithLabelValues(model, outcome).Inc()
	m.generationDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveSnippetOperation implements service.SnippetRecorder.
func (m *Metrics) ObserveSnippetOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.snippetOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}
