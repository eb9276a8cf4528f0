package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verification service.
type Metrics struct {
	Submissions prometheus.Counter
	Decisions   *prometheus.CounterVec
	StatusReads *prometheus.CounterVec
	HTTPLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustbadge_verification_submissions_total",
			Help: "Total verification submissions accepted into pending review",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbadge_verification_decisions_total",
			Help: "Total admin decisions by outcome",
		}, []string{"decision"}),
		StatusReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustbadge_verification_status_reads_total",
			Help: "Status reads by source (cache or store)",
		}, []string{"source"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustbadge_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// RecordDecision increments the decision counter for approve/reject outcomes.
func (m *Metrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

// RecordStatusRead tags each status read with its serving source.
func (m *Metrics) RecordStatusRead(source string) {
	if m == nil {
		return
	}
	m.StatusReads.WithLabelValues(source).Inc()
}

// RecordSubmission increments the submission counter.
func (m *Metrics) RecordSubmission() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}
