// Package observability provides Prometheus metrics and the optional
// health/metrics HTTP server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics exported by the client.
// Using promauto for automatic registration with the default registry.
var Metrics = struct {
	// ServiceNow Table API metrics
	APIRequestsTotal *prometheus.CounterVec
	APIErrorsTotal   *prometheus.CounterVec
	APILatency       *prometheus.HistogramVec

	// Filter-resolution metrics: how caller-supplied identifiers were
	// classified (number, description, email, full_name, account, sys_id).
	ResolutionsTotal *prometheus.CounterVec
}{
	APIRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowclient_api_requests_total",
		Help: "Total number of ServiceNow Table API requests.",
	}, []string{"method", "table"}),

	APIErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowclient_api_errors_total",
		Help: "Total number of ServiceNow Table API errors by status code.",
	}, []string{"method", "status_code"}),

	APILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snowclient_api_latency_seconds",
		Help:    "ServiceNow Table API response latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "table"}),

	ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowclient_resolutions_total",
		Help: "Total number of identifier resolutions by classification.",
	}, []string{"kind"}),
}
