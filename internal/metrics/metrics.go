// Package metrics exposes Prometheus collectors for probes and jobs. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Job results.
const (
	JobDone     = "done"
	JobCanceled = "canceled"
	JobFailed   = "failed"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	probesTotal     *prometheus.CounterVec
	findingsTotal   *prometheus.CounterVec
	suppressedTotal prometheus.Counter
	probeLatency    prometheus.Histogram
	jobsTotal       *prometheus.CounterVec
	jobsActive      prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirgraph_probes_total",
			Help: "Completed probes by outcome",
		},
		[]string{"outcome"},
	)
	m.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirgraph_findings_total",
			Help: "Reported findings by HTTP status",
		},
		[]string{"status"},
	)
	m.suppressedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dirgraph_soft404_suppressed_total",
		Help: "Results dropped as soft-404",
	})
	m.probeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dirgraph_probe_duration_seconds",
		Help:    "Probe round-trip time",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
	m.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirgraph_jobs_total",
			Help: "Finished jobs by result",
		},
		[]string{"result"},
	)
	m.jobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dirgraph_jobs_active",
		Help: "Jobs currently running",
	})

	m.registry.MustRegister(
		m.probesTotal,
		m.findingsTotal,
		m.suppressedTotal,
		m.probeLatency,
		m.jobsTotal,
		m.jobsActive,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Probe records one completed unit.
func (m *Metrics) Probe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeError && outcome != OutcomePanic {
		m.probeLatency.Observe(d.Seconds())
	}
}

// Finding records one reported finding.
func (m *Metrics) Finding(status int) {
	if m == nil {
		return
	}
	m.findingsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Suppressed records one soft-404 suppression.
func (m *Metrics) Suppressed() {
	if m == nil {
		return
	}
	m.suppressedTotal.Inc()
}

// JobStarted increments the active gauge.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsActive.Inc()
}

// JobFinished decrements the active gauge and counts the result.
func (m *Metrics) JobFinished(result string) {
	if m == nil {
		return
	}
	m.jobsActive.Dec()
	m.jobsTotal.WithLabelValues(result).Inc()
}
