package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	ExecutionsTotal  *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	ExecutionErrors  *prometheus.CounterVec
	ActiveExecutions prometheus.Gauge
	RequestsInFlight prometheus.Gauge
	RateLimited      prometheus.Counter
	ShimInjections   prometheus.Counter
	ProvisionedTotal *prometheus.CounterVec
	CodeSizeBytes    prometheus.Histogram
	OutputSizeBytes  prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codeplay",
				Name:      "executions_total",
				Help:      "Total number of execute requests by language and status.",
			},
			[]string{"language", "status"},
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "codeplay",
				Name:      "sandbox_request_duration_seconds",
				Help:      "Duration of sandbox execute calls in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"language"},
		),

		ExecutionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codeplay",
				Name:      "execution_errors_total",
				Help:      "Total execute failures by type.",
			},
			[]string{"type"},
		),

		ActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "codeplay",
				Name:      "active_executions",
				Help:      "Number of sandbox calls currently in flight.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "codeplay",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "codeplay",
				Subsystem: "api",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter.",
			},
		),

		ShimInjections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "codeplay",
				Name:      "input_shim_injections_total",
				Help:      "Python executions submitted behind the input bootstrap.",
			},
		),

		ProvisionedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codeplay",
				Name:      "provisioned_packages_total",
				Help:      "Startup package installs by result.",
			},
			[]string{"result"},
		),

		CodeSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "codeplay",
				Name:      "code_size_bytes",
				Help:      "Size of submitted code in bytes.",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "codeplay",
				Name:      "output_size_bytes",
				Help:      "Size of execution output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
	}

	reg.MustRegister(
		m.ExecutionsTotal,
		m.UpstreamDuration,
		m.ExecutionErrors,
		m.ActiveExecutions,
		m.RequestsInFlight,
		m.RateLimited,
		m.ShimInjections,
		m.ProvisionedTotal,
		m.CodeSizeBytes,
		m.OutputSizeBytes,
	)

	return m
}

// RecordExecution records metrics for a completed execute request.
func (m *Metrics) RecordExecution(language, status string, durationSec float64) {
	m.ExecutionsTotal.WithLabelValues(language, status).Inc()
	m.UpstreamDuration.WithLabelValues(language).Observe(durationSec)
}

// RecordError records an execute failure by type.
func (m *Metrics) RecordError(errType string) {
	m.ExecutionErrors.WithLabelValues(errType).Inc()
}

// RecordProvision records the outcome of a startup provisioning pass.
func (m *Metrics) RecordProvision(installed, failed int) {
	m.ProvisionedTotal.WithLabelValues("installed").Add(float64(installed))
	m.ProvisionedTotal.WithLabelValues("failed").Add(float64(failed))
}
