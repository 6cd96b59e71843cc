// Package metrics holds the Prometheus instrumentation of solves and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// Metrics owns a private registry. Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	solveDuration  *prometheus.HistogramVec
	solveTotal     *prometheus.CounterVec
	solveErrors    *prometheus.CounterVec
	bottlenecks    *prometheus.CounterVec
	coverage       prometheus.Histogram
	lastCoverage   *prometheus.GaugeVec
	cacheLookups   *prometheus.CounterVec
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New registers the solve and HTTP collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_solve_duration_seconds",
			Help:    "Duration of roster solves in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"solver"}),
		solveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_solves_total",
			Help: "Total completed roster solves by status",
		}, []string{"solver", "status"}),
		solveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_solve_errors_total",
			Help: "Total roster solves that returned an error, by kind",
		}, []string{"kind"}),
		bottlenecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_bottlenecks_total",
			Help: "Total unfilled requirements by diagnosed reason",
		}, []string{"reason"}),
		coverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_coverage_percent",
			Help:    "Coverage percent achieved by completed solves",
			Buckets: []float64{50, 70, 80, 85, 90, 95, 99, 100},
		}),
		lastCoverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roster_last_coverage_percent",
			Help: "Coverage percent of the latest solve per roster",
		}, []string{"roster_id"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_cache_lookups_total",
			Help: "Solve result cache lookups by result",
		}, []string{"result"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	registry.MustRegister(
		m.solveDuration, m.solveTotal, m.solveErrors, m.bottlenecks, m.coverage, m.lastCoverage,
		m.cacheLookups, m.requestTotal, m.requestLatency,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return m
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveSolve records a completed solve
func (m *Metrics) ObserveSolve(solverName string, out *solver.Output, duration time.Duration) {
	if m == nil || out == nil {
		return
	}
	m.solveDuration.WithLabelValues(solverName).Observe(duration.Seconds())
	m.solveTotal.WithLabelValues(solverName, string(out.Status)).Inc()
	m.coverage.Observe(out.CoveragePercent)
	if out.RosterID != "" {
		m.lastCoverage.WithLabelValues(out.RosterID).Set(out.CoveragePercent)
	}
	for _, b := range out.Bottlenecks {
		m.bottlenecks.WithLabelValues(string(b.Reason)).Inc()
	}
}

// ObserveSolveError records a solve that returned an error
func (m *Metrics) ObserveSolveError(kind string) {
	if m == nil {
		return
	}
	m.solveErrors.WithLabelValues(kind).Inc()
}

// RecordCacheLookup records a result cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records request metrics
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	m.requestLatency.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
}
