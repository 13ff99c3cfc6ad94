package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"dataportal/internal/portal/metrics"
	"dataportal/pkg/platform/circuit"
)

// toggleStore is a MemoryStore that fails every call while down is set.
type toggleStore struct {
	*MemoryStore
	down  atomic.Bool
	calls atomic.Int32
}

var errDown = errors.New("dial tcp: connection refused")

func (s *toggleStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.calls.Add(1)
	if s.down.Load() {
		return nil, false, errDown
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *toggleStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.calls.Add(1)
	if s.down.Load() {
		return errDown
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func (s *toggleStore) Clear(ctx context.Context) error {
	s.calls.Add(1)
	if s.down.Load() {
		return errDown
	}
	return s.MemoryStore.Clear(ctx)
}

type ResilientStoreSuite struct {
	suite.Suite
	ctx      context.Context
	primary  *toggleStore
	fallback *MemoryStore
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	store    *ResilientStore
}

func TestResilientStoreSuite(t *testing.T) {
	suite.Run(t, new(ResilientStoreSuite))
}

func (s *ResilientStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.primary = &toggleStore{MemoryStore: NewMemoryStore(nil)}
	s.fallback = NewMemoryStore(nil)
	s.breaker = circuit.New("cache_store", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store = NewResilientStore(s.primary, s.fallback, nil, WithBreaker(s.breaker), WithStoreMetrics(s.metrics))
}

func (s *ResilientStoreSuite) TestHealthyPrimaryIsUsed() {
	s.Require().NoError(s.store.Set(s.ctx, "k", []byte("v"), time.Minute))
	data, ok, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("v", string(data))
	s.Zero(s.fallback.Len())
}

func (s *ResilientStoreSuite) TestErrorsSurfaceUntilBreakerOpens() {
	s.primary.down.Store(true)

	_, _, err := s.store.Get(s.ctx, "k")
	s.ErrorIs(err, errDown)
	s.False(s.breaker.IsOpen())

	s.Require().NoError(s.store.Set(s.ctx, "k", []byte("v"), time.Minute), "second failure opens and falls back")
	s.True(s.breaker.IsOpen())
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheBreakerOpen.WithLabelValues("cache_store")), 0)

	data, ok, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("v", string(data))
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheFallbacksTotal.WithLabelValues("get")), 0)
}

func (s *ResilientStoreSuite) TestRecoveryClosesBreakerAndDropsLocalEntries() {
	s.primary.down.Store(true)
	_, _, _ = s.store.Get(s.ctx, "a")
	_ = s.store.Set(s.ctx, "a", []byte("local"), time.Minute)
	s.Require().True(s.breaker.IsOpen())

	s.primary.down.Store(false)
	_, ok, err := s.store.Get(s.ctx, "missing")
	s.Require().NoError(err)
	s.False(ok)
	s.False(s.breaker.IsOpen())
	s.Zero(s.fallback.Len())
	s.InDelta(0, testutil.ToFloat64(s.metrics.CacheBreakerOpen.WithLabelValues("cache_store")), 0)
}

func (s *ResilientStoreSuite) TestClearReportsPrimaryFailure() {
	_ = s.fallback.Set(s.ctx, "x", []byte("1"), time.Minute)
	s.primary.down.Store(true)

	s.ErrorIs(s.store.Clear(s.ctx), errDown)
	s.Zero(s.fallback.Len())
}
