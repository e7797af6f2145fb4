// Package metrics exposes the Prometheus instruments for the upload
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the upload pipeline instruments.
type Metrics struct {
	uploadsTotal   *prometheus.CounterVec
	rowsAccepted   prometheus.Counter
	rowErrorsTotal *prometheus.CounterVec
	uploadDuration prometheus.Histogram
}

// New registers the upload metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_batches_total",
			Help: "Number of upload invocations by outcome.",
		}, []string{"outcome"}),
		rowsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "upload_rows_accepted_total",
			Help: "Number of rows accepted and persisted.",
		}),
		rowErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_row_errors_total",
			Help: "Number of row errors by error code.",
		}, []string{"code"}),
		uploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_duration_seconds",
			Help:    "End to end duration of one upload invocation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveUpload records one finished invocation.
func (m *Metrics) ObserveUpload(success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(elapsed.Seconds())
}

// AddRows counts accepted rows.
func (m *Metrics) AddRows(n int) {
	if n > 0 {
		m.rowsAccepted.Add(float64(n))
	}
}

// CountRowError counts one row error by code.
func (m *Metrics) CountRowError(code string) {
	m.rowErrorsTotal.WithLabelValues(code).Inc()
}
