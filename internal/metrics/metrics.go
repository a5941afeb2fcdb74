// Package metrics exposes Prometheus collectors for HTTP traffic, the
// database pool and the badge engine.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"memorybox/internal/appinfo"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memorybox"

// Metrics owns a private registry so tests can build as many as they like
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	awards             *prometheus.CounterVec

	sweepRuns   *prometheus.CounterVec
	sweepGroups *prometheus.CounterVec
	sweepLast   prometheus.Gauge
}

// New creates and registers every collector. db may be nil.
func New(db *sql.DB) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),

		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badges",
			Name:      "evaluations_total",
			Help:      "Badge evaluations by outcome.",
		}, []string{"outcome"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "badges",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of badge evaluations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"outcome"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badges",
			Name:      "awarded_total",
			Help:      "Badges written to group ledgers.",
		}, []string{"badge"}),

		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badge_sweep",
			Name:      "runs_total",
			Help:      "Completed badge sweeps by result.",
		}, []string{"result"}),
		sweepGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badge_sweep",
			Name:      "groups_total",
			Help:      "Groups visited by the badge sweep.",
		}, []string{"result"}),
		sweepLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "badge_sweep",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last sweep without failures.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.evaluations, m.evaluationDuration, m.awards,
		m.sweepRuns, m.sweepGroups, m.sweepLast,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	if db != nil {
		m.registry.MustRegister(collectors.NewDBStatsCollector(db, namespace))
	}

	build := appinfo.Get()
	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Always 1; labels describe the running build.",
	}, []string{"version", "revision", "goversion"})
	buildInfo.WithLabelValues(build.Version, build.Revision, build.GoVersion).Set(1)
	m.registry.MustRegister(buildInfo)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ===============================
// HTTP INSTRUMENTATION
// ===============================

// Middleware records request counts and latencies labelled by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded: ids never reach a label
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ===============================
// BADGE ENGINE
// ===============================

// ObserveEvaluation implements badges.Recorder
func (m *Metrics) ObserveEvaluation(outcome string, d time.Duration) {
	m.evaluations.WithLabelValues(outcome).Inc()
	m.evaluationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveAwards implements badges.Recorder
func (m *Metrics) ObserveAwards(badgeIDs []string) {
	for _, id := range badgeIDs {
		m.awards.WithLabelValues(id).Inc()
	}
}

// ObserveSweep records one completed sweep
func (m *Metrics) ObserveSweep(evaluated, failed int, at time.Time) {
	m.sweepGroups.WithLabelValues("ok").Add(float64(evaluated))
	m.sweepGroups.WithLabelValues("failed").Add(float64(failed))
	if failed > 0 {
		m.sweepRuns.WithLabelValues("partial").Inc()
		return
	}
	m.sweepRuns.WithLabelValues("ok").Inc()
	m.sweepLast.Set(float64(at.Unix()))
}
