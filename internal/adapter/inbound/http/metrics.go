package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the transport.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ToolCallsTotal    *prometheus.CounterVec
	AuthFailuresTotal *prometheus.CounterVec
	SSEConnections    prometheus.Gauge
	RateLimitKeys     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ifmcp",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ifmcp",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ToolCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ifmcp",
				Name:      "tool_calls_total",
				Help:      "Total tool invocations",
			},
			[]string{"tool", "status"}, // status=ok/error
		),
		AuthFailuresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ifmcp",
				Name:      "auth_failures_total",
				Help:      "Requests rejected by the authentication middleware",
			},
			[]string{"status"}, // 401/403/429
		),
		SSEConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ifmcp",
				Name:      "sse_connections",
				Help:      "Number of tracked streaming connections",
			},
		),
		RateLimitKeys: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ifmcp",
				Name:      "rate_limit_keys",
				Help:      "Number of active rate limit keys",
			},
		),
	}
}
