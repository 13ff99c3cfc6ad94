// Package metrics holds process-level Prometheus metrics: HTTP endpoint
// latency and Redis connection pool statistics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec

	RedisPoolHits       prometheus.Counter
	RedisPoolMisses     prometheus.Counter
	RedisPoolTimeouts   prometheus.Counter
	RedisPoolStaleConns prometheus.Counter
	RedisPoolTotalConns prometheus.Gauge
	RedisPoolIdleConns  prometheus.Gauge
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by route pattern and status class",
		}, []string{"endpoint", "class"}),
		RedisPoolHits: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_redis_pool_hits_total",
			Help: "Number of times a connection was found in the pool",
		}),
		RedisPoolMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_redis_pool_misses_total",
			Help: "Number of times a connection was not found in the pool",
		}),
		RedisPoolTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_redis_pool_timeouts_total",
			Help: "Number of times a connection was not obtained due to timeout",
		}),
		RedisPoolStaleConns: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_redis_pool_stale_conns_total",
			Help: "Number of stale connections removed from the pool",
		}),
		RedisPoolTotalConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "portal_redis_pool_total_conns",
			Help: "Number of total connections in the pool",
		}),
		RedisPoolIdleConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "portal_redis_pool_idle_conns",
			Help: "Number of idle connections in the pool",
		}),
	}
}

// ObserveRequest records one served request. status is the HTTP status code.
func (m *Metrics) ObserveRequest(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(endpoint).Observe(seconds)
	m.RequestsTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
