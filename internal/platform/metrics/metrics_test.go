package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("/api/v1/portal/view", 200, 0.01)
	m.ObserveRequest("/api/v1/portal/view", 400, 0.01)
	m.ObserveRequest("/api/v1/portal/view", 400, 0.02)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/portal/view", "2xx")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/portal/view", "4xx")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveRequest("/x", 500, 1) })
}
