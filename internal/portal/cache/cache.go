// Package cache memoizes source adapter results for a bounded time.
//
// Only successful results are stored: a failed producer is retried on the
// next call regardless of age. Concurrent callers for the same key share one
// producer call; each caller still waits on its own context.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dataportal/internal/portal/metrics"
)

// DefaultTTL applies to all three source adapters.
const DefaultTTL = 300 * time.Second

// Cache wraps a Store with key derivation, request coalescing and metrics.
type Cache struct {
	store   Store
	flight  singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	// generation advances on every ClearAll. Results computed under an
	// older generation are returned to their callers but never stored.
	genMu      sync.RWMutex
	generation uint64
}

type Option func(*Cache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New wraps store. A nil store uses a fresh MemoryStore.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore(nil)
	}
	c := &Cache{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives an entry key from a namespace and the full argument tuple, so
// distinct scope, period or query combinations never collide.
func Key(namespace string, args ...any) string {
	payload, err := json.Marshal(args)
	if err != nil {
		payload = []byte(fmt.Sprint(args...))
	}
	sum := sha256.Sum256(payload)
	return namespace + ":" + hex.EncodeToString(sum[:16])
}

func namespaceOf(key string) string {
	ns, _, _ := strings.Cut(key, ":")
	return ns
}

// GetOrCompute returns the value stored under key, or calls produce and
// stores its result for ttl. Producer errors are returned and never stored.
// Store faults are logged and treated as a miss.
//
// Coalesced callers share one producer call, which runs detached from any
// single caller's cancellation; a caller whose ctx ends stops waiting with
// ctx.Err() while the others still receive the result. Producers bound
// their own work with the adapter timeouts.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, produce func(context.Context) (T, error)) (T, error) {
	var zero T
	ns := namespaceOf(key)
	if v, ok := lookup[T](ctx, c, key); ok {
		c.metrics.RecordCacheHit(ns)
		return v, nil
	}
	c.metrics.RecordCacheMiss(ns)

	gen := c.currentGeneration()
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(flightKey(key, gen), func() (any, error) {
		v, err := produce(shared)
		if err != nil {
			return v, err
		}
		c.save(shared, gen, key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		v, _ := res.Val.(T)
		return v, res.Err
	}
}

// flightKey separates computations started before and after a ClearAll, so
// a caller arriving after a refresh never joins a pre-refresh fetch.
func flightKey(key string, gen uint64) string {
	return key + "#" + strconv.FormatUint(gen, 10)
}

func (c *Cache) currentGeneration() uint64 {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return c.generation
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.RecordStoreError("get")
		c.logger.WarnContext(ctx, "cache lookup failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.metrics.RecordStoreError("decode")
		c.logger.WarnContext(ctx, "cache entry undecodable", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// save stores v unless a ClearAll ran since the computation started. The
// read lock keeps a concurrent ClearAll from advancing the generation until
// the write has landed, so the clear always removes it.
func (c *Cache) save(ctx context.Context, gen uint64, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if gen != c.generation {
		c.logger.DebugContext(ctx, "cache result discarded after refresh", "key", key)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.metrics.RecordStoreError("encode")
		c.logger.WarnContext(ctx, "cache entry unencodable", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.metrics.RecordStoreError("set")
		c.logger.WarnContext(ctx, "cache store failed", "key", key, "error", err)
	}
}

// ClearAll drops every entry regardless of age. Computations already in
// flight still answer their callers but their results are not stored.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.genMu.Lock()
	c.generation++
	c.genMu.Unlock()

	c.metrics.IncrementInvalidations()
	return c.store.Clear(ctx)
}
