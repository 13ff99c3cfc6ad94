package cache

import (
	"context"
	"log/slog"
	"time"

	"dataportal/internal/portal/metrics"
	"dataportal/pkg/platform/circuit"
)

// ResilientStore fronts a shared primary store (Redis) with a circuit
// breaker. While the breaker is open, reads and writes go to a process-local
// fallback; the primary is still tried on fallback misses so the breaker can
// close again.
type ResilientStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type ResilientOption func(*ResilientStore)

func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(s *ResilientStore) { s.breaker = b }
}

func WithStoreMetrics(m *metrics.Metrics) ResilientOption {
	return func(s *ResilientStore) { s.metrics = m }
}

// NewResilientStore wraps primary. A nil fallback uses a new MemoryStore.
func NewResilientStore(primary, fallback Store, logger *slog.Logger, opts ...ResilientOption) *ResilientStore {
	if fallback == nil {
		fallback = NewMemoryStore(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ResilientStore{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("cache_store"),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ResilientStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.breaker.IsOpen() {
		if data, ok, _ := s.fallback.Get(ctx, key); ok {
			s.metrics.RecordFallback("get")
			return data, true, nil
		}
	}

	data, ok, err := s.primary.Get(ctx, key)
	if err != nil {
		if s.failed(ctx, err) {
			s.metrics.RecordFallback("get")
			return s.fallback.Get(ctx, key)
		}
		return nil, false, err
	}
	s.succeeded(ctx)
	return data, ok, nil
}

// Set always writes the fallback while the breaker is open so entries
// computed during an outage are still reused.
func (s *ResilientStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.breaker.IsOpen() {
		_ = s.fallback.Set(ctx, key, value, ttl)
	}
	if err := s.primary.Set(ctx, key, value, ttl); err != nil {
		if s.failed(ctx, err) {
			s.metrics.RecordFallback("set")
			return s.fallback.Set(ctx, key, value, ttl)
		}
		return err
	}
	s.succeeded(ctx)
	return nil
}

// Clear empties both stores. A primary failure is returned so a refresh is
// never reported as done while shared entries survive.
func (s *ResilientStore) Clear(ctx context.Context) error {
	_ = s.fallback.Clear(ctx)
	if err := s.primary.Clear(ctx); err != nil {
		s.failed(ctx, err)
		return err
	}
	s.succeeded(ctx)
	return nil
}

func (s *ResilientStore) failed(ctx context.Context, err error) bool {
	open, t := s.breaker.RecordFailure()
	if t.Opened {
		s.logger.ErrorContext(ctx, "circuit breaker opened", "circuit", s.breaker.Name(), "error", err)
		s.metrics.SetBreakerOpen(s.breaker.Name(), true)
	}
	return open
}

func (s *ResilientStore) succeeded(ctx context.Context) {
	_, t := s.breaker.RecordSuccess()
	if t.Closed {
		s.logger.InfoContext(ctx, "circuit breaker closed", "circuit", s.breaker.Name())
		s.metrics.SetBreakerOpen(s.breaker.Name(), false)
		// Entries written during the outage are local only.
		_ = s.fallback.Clear(ctx)
	}
}

var _ Store = (*ResilientStore)(nil)
