package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Stage outcomes recorded on StageDuration.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds Prometheus metrics for the HTTP layer and the query pipeline.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StageDuration    *prometheus.HistogramVec
	IndexedDocuments prometheus.Gauge
}

// NewMetrics creates and registers the service metrics on the default registry.
// Registration happens once per process; later calls return the same value.
//
// Metrics:
//   - ragqa_http_requests_total{method,route,status}
//   - ragqa_http_request_duration_seconds{method,route}
//   - ragqa_pipeline_stage_duration_seconds{stage,outcome}
//   - ragqa_indexed_documents
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ragqa_http_requests_total",
					Help: "Total number of HTTP requests handled",
				},
				[]string{"method", "route", "status"},
			),

			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ragqa_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),

			StageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ragqa_pipeline_stage_duration_seconds",
					Help:    "Duration of pipeline stages in seconds",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
				},
				[]string{"stage", "outcome"}, // retrieve, reason, format
			),

			IndexedDocuments: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ragqa_indexed_documents",
					Help: "Number of documents currently held by the retrieval index",
				},
			),
		}
	})
	return globalMetrics
}

// Outcome maps an error to a stage outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
