// Package metrics provides Prometheus metrics for the portal cache and the
// live source adapters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all portal aggregation metrics.
type Metrics struct {
	// Cache operation metrics
	CacheHitsTotal          *prometheus.CounterVec // by namespace (catalog, metrics, warehouse)
	CacheMissesTotal        *prometheus.CounterVec // by namespace
	CacheStoreErrorsTotal   *prometheus.CounterVec // store faults degraded to a miss, by operation
	CacheInvalidationsTotal prometheus.Counter     // refresh-triggered clears
	CacheFallbacksTotal     *prometheus.CounterVec // operations served by the local fallback, by operation
	CacheBreakerOpen        *prometheus.GaugeVec   // 1 while the store breaker is open

	// Source metrics
	SourceFetchDurationSeconds *prometheus.HistogramVec // adapter latency by source
	SourceFailuresTotal        *prometheus.CounterVec   // failed adapter attempts by source and category

	ViewBuildsTotal *prometheus.CounterVec // portal views built by run mode
}

// New creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_cache_hits_total",
			Help: "Total number of source cache hits by namespace",
		}, []string{"namespace"}),

		CacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_cache_misses_total",
			Help: "Total number of source cache misses by namespace",
		}, []string{"namespace"}),

		CacheStoreErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_cache_store_errors_total",
			Help: "Cache store failures that were treated as a miss",
		}, []string{"op"}),

		CacheInvalidationsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_cache_invalidations_total",
			Help: "Total number of cache clear (refresh) operations",
		}),

		CacheFallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_cache_fallbacks_total",
			Help: "Cache operations served by the local fallback store",
		}, []string{"op"}),

		CacheBreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_cache_breaker_open",
			Help: "Whether the cache store circuit breaker is open (1) or closed (0)",
		}, []string{"circuit"}),

		SourceFetchDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_source_fetch_duration_seconds",
			Help:    "Duration of live source fetches including cache lookup",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		SourceFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_source_failures_total",
			Help: "Total number of failed source fetches by source and error category",
		}, []string{"source", "category"}),

		ViewBuildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_view_builds_total",
			Help: "Total number of portal views built by run mode",
		}, []string{"mode"}),
	}
}

func (m *Metrics) RecordCacheHit(namespace string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(namespace).Inc()
}

func (m *Metrics) RecordCacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(namespace).Inc()
}

func (m *Metrics) RecordStoreError(op string) {
	if m == nil {
		return
	}
	m.CacheStoreErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementInvalidations() {
	if m == nil {
		return
	}
	m.CacheInvalidationsTotal.Inc()
}

func (m *Metrics) RecordFallback(op string) {
	if m == nil {
		return
	}
	m.CacheFallbacksTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) SetBreakerOpen(circuit string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CacheBreakerOpen.WithLabelValues(circuit).Set(v)
}

// ObserveSourceFetch records one adapter attempt. An empty category means
// success.
func (m *Metrics) ObserveSourceFetch(source string, d time.Duration, category string) {
	if m == nil {
		return
	}
	m.SourceFetchDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
	if category != "" {
		m.SourceFailuresTotal.WithLabelValues(source, category).Inc()
	}
}

func (m *Metrics) RecordViewBuild(mode string) {
	if m == nil {
		return
	}
	m.ViewBuildsTotal.WithLabelValues(mode).Inc()
}

// CacheHitRate returns hits/(hits+misses), or 0 before any lookup.
func CacheHitRate(hits, misses float64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
