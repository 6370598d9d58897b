package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	rubricParseSeconds     prometheus.Histogram
	rubricLinesTotal       *prometheus.CounterVec
	rubricUploadsTotal     *prometheus.CounterVec
	rubricReconcilesTotal  *prometheus.CounterVec
	rubricMetricsMutations *prometheus.CounterVec
	rubricEventsFailed     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the rubric API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_api_requests_total",
			Help: "Total number of rubric API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_api_latency_seconds",
			Help:    "Latency distribution for rubric API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_api_errors_total",
			Help: "Total number of error responses returned by rubric endpoints.",
		}, []string{"method", "route", "status"})

		rubricParseSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rubric_parse_seconds",
			Help:    "Time spent classifying and materializing a rubric document.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		})

		rubricLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_lines_total",
			Help: "Non-blank rubric lines seen by the parser, by outcome.",
		}, []string{"outcome"})

		rubricUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_uploads_total",
			Help: "Rubric uploads by resulting status.",
		}, []string{"status"})

		rubricReconcilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_reconciliations_total",
			Help: "Reconciliations by policy and outcome.",
		}, []string{"policy", "outcome"})

		rubricMetricsMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_metric_mutations_total",
			Help: "Metric rows inserted or deleted, by action.",
		}, []string{"action"})

		rubricEventsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_event_publish_failures_total",
			Help: "Reconciliation events that could not be published, by broker.",
		}, []string{"broker"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			rubricParseSeconds, rubricLinesTotal, rubricUploadsTotal,
			rubricReconcilesTotal, rubricMetricsMutations, rubricEventsFailed,
		)
	})
}

// APIRequests exposes the counter for rubric API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for rubric API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for rubric API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RubricParseDuration exposes the parse latency histogram.
func RubricParseDuration() prometheus.Histogram {
	RegisterMetrics()
	return rubricParseSeconds
}

// RubricLines exposes the classified/dropped line counter.
func RubricLines() *prometheus.CounterVec {
	RegisterMetrics()
	return rubricLinesTotal
}

// RubricUploads exposes the upload status counter.
func RubricUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return rubricUploadsTotal
}

// RubricReconciliations exposes the reconciliation counter.
func RubricReconciliations() *prometheus.CounterVec {
	RegisterMetrics()
	return rubricReconcilesTotal
}

// MetricMutations exposes the inserted/deleted row counter.
func MetricMutations() *prometheus.CounterVec {
	RegisterMetrics()
	return rubricMetricsMutations
}

// EventPublishFailures exposes the broker failure counter.
func EventPublishFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return rubricEventsFailed
}
