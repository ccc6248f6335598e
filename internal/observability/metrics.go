package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	SchemaBindFailures prometheus.Counter
	AuthFailures       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edukit_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edukit_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		SchemaBindFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "edukit_schema_bind_failures_total",
			Help: "Requests aborted because a tenant schema could not be bound.",
		}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edukit_auth_failures_total",
			Help: "Authentication and authorization failures by internal reason.",
		}, []string{"reason"}),
	}
}
