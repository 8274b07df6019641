// Package monitoring exposes the Prometheus metrics for the census
// service: HTTP traffic, submission outcomes, rows written per table
// and export activity.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_http_requests_total",
			Help: "HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "census_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_submissions_total",
			Help: "Family form submissions by result",
		},
		[]string{"result"},
	)

	rowsInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_rows_inserted_total",
			Help: "Rows written per census table",
		},
		[]string{"table"},
	)

	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_exports_total",
			Help: "Export downloads by format and result",
		},
		[]string{"format", "result"},
	)

	activeSessions = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "census_active_form_sessions",
			Help: "Live form editing sessions",
		},
		func() float64 { return sessionCounter() },
	)

	sessionCounter = func() float64 { return 0 }
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, submissionsTotal, rowsInsertedTotal, exportsTotal, activeSessions)
}

// Handler serves the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetSessionCounter wires the session store's live count into the gauge
func SetSessionCounter(fn func() float64) {
	sessionCounter = fn
}

// ObserveRequest records one completed HTTP request
func ObserveRequest(method, path string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSubmission counts one submission attempt
func RecordSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// AddRows counts rows written to one table
func AddRows(table string, n int) {
	if n > 0 {
		rowsInsertedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// RecordExport counts one export attempt
func RecordExport(format, result string) {
	exportsTotal.WithLabelValues(format, result).Inc()
}
