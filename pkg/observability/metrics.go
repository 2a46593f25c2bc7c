// Package observability exposes Prometheus metrics for the copilot.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all copilot metrics on a dedicated registry, so independent
// instances (and tests) never collide on metric registration.
type Metrics struct {
	registry *prometheus.Registry

	toolSuccess *prometheus.CounterVec
	toolFailure *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec

	mttd               prometheus.Histogram
	falsePositives     prometheus.Counter
	activeIncidents    prometheus.Gauge
	remediationSuccess *prometheus.CounterVec
	remediationFailure *prometheus.CounterVec
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolSuccess: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tool_call_success_total",
			Help: "Total successful tool calls.",
		}, []string{"tool_name"}),
		toolFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tool_call_failure_total",
			Help: "Total failed tool calls.",
		}, []string{"tool_name"}),
		toolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tool_call_latency_seconds",
			Help:    "Latency of tool calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool_name"}),
		mttd: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "devops_mttd_seconds",
			Help:    "Time from anomaly start to agent detection.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		falsePositives: factory.NewCounter(prometheus.CounterOpts{
			Name: "devops_false_positive_total",
			Help: "Total false positive anomaly alerts.",
		}),
		activeIncidents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "devops_active_incidents",
			Help: "Number of currently open incidents.",
		}),
		remediationSuccess: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devops_remediation_success_total",
			Help: "Successful auto-remediations.",
		}, []string{"service"}),
		remediationFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devops_remediation_failure_total",
			Help: "Failed auto-remediations.",
		}, []string{"service"}),
	}
}

// Handler serves this registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// All methods are safe on a nil receiver so callers can skip wiring metrics.

func (m *Metrics) ToolSucceeded(tool string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolSuccess.WithLabelValues(tool).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) ToolFailed(tool string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolFailure.WithLabelValues(tool).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMTTD(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mttd.Observe(elapsed.Seconds())
}

func (m *Metrics) FalsePositive() {
	if m == nil {
		return
	}
	m.falsePositives.Inc()
}

func (m *Metrics) IncidentOpened() {
	if m == nil {
		return
	}
	m.activeIncidents.Inc()
}

func (m *Metrics) IncidentClosed() {
	if m == nil {
		return
	}
	m.activeIncidents.Dec()
}

func (m *Metrics) RemediationSucceeded(service string) {
	if m == nil {
		return
	}
	m.remediationSuccess.WithLabelValues(service).Inc()
}

func (m *Metrics) RemediationFailed(service string) {
	if m == nil {
		return
	}
	m.remediationFailure.WithLabelValues(service).Inc()
}
