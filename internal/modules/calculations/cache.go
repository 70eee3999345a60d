// Package calculations holds the short-lived result cache shared by the risk operations.
package calculations

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tidwall/match"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL is how long a computed result stays fresh.
const DefaultTTL = 300 * time.Second

type entry struct {
	value     interface{}
	expiresAt time.Time
}

type cacheMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     prometheus.Counter
	invalidations prometheus.Counter
}

// Cache maps computation keys to results with a fixed TTL. Expired entries are
// evicted lazily on read and by Sweep. A second table memoizes intermediate
// model results (volatility forecasts) under the same TTL.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	memo    map[string]entry
	ttl     time.Duration
	now     func() time.Time
	metrics cacheMetrics
	log     zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRegisterer registers the cache counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.metrics = cacheMetrics{
			hits:          registerCounter(reg, "risk_cache_hits_total", "Result cache hits."),
			misses:        registerCounter(reg, "risk_cache_misses_total", "Result cache misses."),
			evictions:     registerCounter(reg, "risk_cache_evictions_total", "Expired entries removed."),
			invalidations: registerCounter(reg, "risk_cache_invalidations_total", "Entries removed by Clear."),
		}
	}
}

func registerCounter(reg prometheus.Registerer, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

// NewCache creates a cache with the given TTL (DefaultTTL when ttl <= 0).
func NewCache(ttl time.Duration, log zerolog.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		memo:    make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "result_cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics.hits == nil {
		c.metrics = cacheMetrics{
			hits:          prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_cache_hits_total"}),
			misses:        prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_cache_misses_total"}),
			evictions:     prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_cache_evictions_total"}),
			invalidations: prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_cache_invalidations_total"}),
		}
	}
	return c
}

// TTL returns the configured time to live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Key builds a deterministic key "op:user:hash" where hash covers kwargs with
// their keys sorted, so argument order never changes the key.
func Key(op, user string, kwargs map[string]interface{}) (string, error) {
	names := make([]string, 0, len(kwargs))
	for k := range kwargs {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]interface{}, 0, 2*len(names))
	for _, k := range names {
		pairs = append(pairs, k, canonical(reflect.ValueOf(kwargs[k])))
	}
	data, err := marshalSorted(pairs)
	if err != nil {
		return "", fmt.Errorf("cache key %s: %w", op, err)
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%s", op, user, hex.EncodeToString(h[:])), nil
}

// Get returns a fresh value for key. An expired entry is removed and reported missing.
func (c *Cache) Get(key string) (interface{}, bool) {
	now := c.now()
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !now.Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
		c.metrics.evictions.Inc()
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.misses.Inc()
		return nil, false
	}
	c.metrics.hits.Inc()
	return e.value, true
}

// Set stores value under key for one TTL.
func (c *Cache) Set(key string, value interface{}) {
	expiresAt := c.now().Add(c.ttl)
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for key, or runs compute and caches its
// result. A compute error is returned as is and nothing is stored.
func (c *Cache) GetOrCompute(key string, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Cached is the typed form of GetOrCompute. A cached value of a different type
// is treated as a miss and recomputed.
func Cached[T any](c *Cache, key string, compute func() (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrCompute(key, func() (interface{}, error) { return compute() })
	if err != nil {
		return zero, err
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}

	c.log.Warn().Str("key", key).Msg("Cached value has unexpected type, recomputing")
	fresh, err := compute()
	if err != nil {
		return zero, err
	}
	c.Set(key, fresh)
	return fresh, nil
}

// Clear removes every entry whose key matches the glob pattern and returns how
// many were removed. An empty pattern clears both tables entirely.
func (c *Cache) Clear(pattern string) int {
	c.mu.Lock()
	removed := 0
	if pattern == "" {
		removed = len(c.entries) + len(c.memo)
		c.entries = make(map[string]entry)
		c.memo = make(map[string]entry)
	} else {
		for k := range c.entries {
			if match.Match(k, pattern) {
				delete(c.entries, k)
				removed++
			}
		}
	}
	c.mu.Unlock()

	c.metrics.invalidations.Add(float64(removed))
	c.log.Debug().Str("pattern", pattern).Int("removed", removed).Msg("Cache cleared")
	return removed
}

// Sweep evicts every expired entry from both tables.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for _, table := range []map[string]entry{c.entries, c.memo} {
		for k, e := range table {
			if !now.Before(e.expiresAt) {
				delete(table, k)
				removed++
			}
		}
	}
	c.mu.Unlock()

	c.metrics.evictions.Add(float64(removed))
	return removed
}

// Len returns the number of entries in the result table, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MemoGet reads the memo table.
func (c *Cache) MemoGet(key string) ([]byte, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.memo[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.memo, key)
		return nil, false
	}
	data, _ := e.value.([]byte)
	return data, true
}

// MemoSet writes the memo table.
func (c *Cache) MemoSet(key string, value []byte) {
	expiresAt := c.now().Add(c.ttl)
	c.mu.Lock()
	c.memo[key] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// canonical rewrites maps anywhere inside v as key-sorted [k, v, ...] lists so the
// encoding does not depend on map iteration order.
func canonical(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return canonical(v.Elem())
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]interface{}, 0, 2*len(keys))
		for _, k := range keys {
			out = append(out, canonical(k), canonical(v.MapIndex(k)))
		}
		return out
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = canonical(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}

func marshalSorted(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
