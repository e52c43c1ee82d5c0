// Package metrics provides Prometheus metrics for credential issuance.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "learning_credentials"

// PrometheusMetrics holds the registered collectors.
// A nil *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	CredentialCounter   *prometheus.CounterVec
	GenerationDuration  *prometheus.HistogramVec
	EligibilityDuration *prometheus.HistogramVec
	JobCounter          *prometheus.CounterVec
	QueueGauge          *prometheus.GaugeVec
	ConfigurationGauge  *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		CredentialCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_generated_total",
			Help:      "Credential generation attempts by resulting status.",
		}, []string{"status"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent in a generation function.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"generation_func"}),
		EligibilityDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eligibility_duration_seconds",
			Help:      "Time spent in a retrieval function.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"retrieval_func"}),
		JobCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background jobs processed by type and outcome.",
		}, []string{"job_type", "outcome"}),
		QueueGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_queue_jobs",
			Help:      "Jobs in the queue by status.",
		}, []string{"status"}),
		ConfigurationGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configurations",
			Help:      "Credential configurations by state.",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{
		m.CredentialCounter,
		m.GenerationDuration,
		m.EligibilityDuration,
		m.JobCounter,
		m.QueueGauge,
		m.ConfigurationGauge,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// RecordCredential counts a generation attempt ending in status.
func (m *PrometheusMetrics) RecordCredential(status string) {
	if m == nil {
		return
	}
	m.CredentialCounter.WithLabelValues(status).Inc()
}

// RecordGenerationDuration observes the duration of a generation function.
func (m *PrometheusMetrics) RecordGenerationDuration(fn string, seconds float64) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(fn).Observe(seconds)
}

// RecordEligibilityDuration observes the duration of a retrieval function.
func (m *PrometheusMetrics) RecordEligibilityDuration(fn string, seconds float64) {
	if m == nil {
		return
	}
	m.EligibilityDuration.WithLabelValues(fn).Observe(seconds)
}

// RecordJob counts a processed job.
func (m *PrometheusMetrics) RecordJob(jobType, outcome string) {
	if m == nil {
		return
	}
	m.JobCounter.WithLabelValues(jobType, outcome).Inc()
}

// SetQueueDepth sets the number of jobs with the given status.
func (m *PrometheusMetrics) SetQueueDepth(status string, n int) {
	if m == nil {
		return
	}
	m.QueueGauge.WithLabelValues(status).Set(float64(n))
}

// SetConfigurationCount sets the number of configurations in a state.
func (m *PrometheusMetrics) SetConfigurationCount(state string, n int) {
	if m == nil {
		return
	}
	m.ConfigurationGauge.WithLabelValues(state).Set(float64(n))
}
