// ============================================================================
// readpulse Metrics - Prometheus instrumentation
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collects and exposes run metrics in Prometheus format.
//
// Metric groups:
//
//   1. Attempt counters (Counter):
//      - read_attempts_total{outcome}: attempts by outcome
//        (success, auth_expired, protocol_anomaly, failure)
//      - session_renewals_total / session_renewal_failures_total
//      - sync_repairs_total: best-effort repair hints sent
//
//   2. Performance (Histogram):
//      - read_request_duration_seconds: submission latency including
//        retries, for spotting remote slowdowns
//
//   3. State (Gauge):
//      - circuit_breaker_state: 0 closed, 1 open, 2 half-open
//      - run_reading_minutes: accumulated credited minutes this run
//
// Each Collector owns a private registry so multiple runs (or tests)
// can construct collectors without double-registration panics.
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luyichen/readpulse/internal/resilience"
)

// Collector gathers readpulse run metrics.
type Collector struct {
	registry *prometheus.Registry

	readAttempts     *prometheus.CounterVec
	sessionRenewals  prometheus.Counter
	renewalFailures  prometheus.Counter
	syncRepairs      prometheus.Counter
	requestDuration  prometheus.Histogram
	circuitState     prometheus.Gauge
	runReadingMinute prometheus.Gauge
}

// NewCollector creates a collector with all metrics registered on a
// fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		readAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readpulse_read_attempts_total",
			Help: "Total read submissions by outcome",
		}, []string{"outcome"}),
		sessionRenewals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readpulse_session_renewals_total",
			Help: "Total successful session renewals",
		}),
		renewalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readpulse_session_renewal_failures_total",
			Help: "Total failed session renewals",
		}),
		syncRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readpulse_sync_repairs_total",
			Help: "Total best-effort sync-state repair hints sent",
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "readpulse_read_request_duration_seconds",
			Help:    "Read submission latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		}),
		circuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "readpulse_circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		}),
		runReadingMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "readpulse_run_reading_minutes",
			Help: "Reading minutes credited so far in the current run",
		}),
	}

	c.registry.MustRegister(
		c.readAttempts,
		c.sessionRenewals,
		c.renewalFailures,
		c.syncRepairs,
		c.requestDuration,
		c.circuitState,
		c.runReadingMinute,
	)

	return c
}

// RecordAttempt records one read submission and its latency.
func (c *Collector) RecordAttempt(outcome string, seconds float64) {
	c.readAttempts.WithLabelValues(outcome).Inc()
	c.requestDuration.Observe(seconds)
}

// RecordRenewal records a session renewal result.
func (c *Collector) RecordRenewal(ok bool) {
	if ok {
		c.sessionRenewals.Inc()
	} else {
		c.renewalFailures.Inc()
	}
}

// RecordRepair records one sync-state repair hint.
func (c *Collector) RecordRepair() {
	c.syncRepairs.Inc()
}

// SetCircuitState mirrors the breaker state into a gauge.
func (c *Collector) SetCircuitState(s resilience.State) {
	c.circuitState.Set(float64(s))
}

// SetReadingMinutes updates the credited-minutes gauge.
func (c *Collector) SetReadingMinutes(minutes float64) {
	c.runReadingMinute.Set(minutes)
}

// Handler serves this collector's registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on the given port. Blocks.
func (c *Collector) StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
