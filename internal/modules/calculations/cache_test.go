package calculations

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/testing"
)

func newTestCache(t *testing.T) (*Cache, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewCache(DefaultTTL, zerolog.Nop(), WithClock(clock.Now)), clock
}

func TestKey_Deterministic(t *testing.T) {
	a, err := Key("volatility", "alice", map[string]interface{}{"model": "ewma_30d", "window": 60})
	require.NoError(t, err)
	b, err := Key("volatility", "alice", map[string]interface{}{"window": 60, "model": "ewma_30d"})
	require.NoError(t, err)
	c, err := Key("volatility", "alice", map[string]interface{}{"window": 61, "model": "ewma_30d"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^volatility:alice:[0-9a-f]{64}$`, a)
}

func TestKey_NestedMapsAreOrderIndependent(t *testing.T) {
	a, err := Key("report", "u", map[string]interface{}{
		"holdings": map[string]float64{"AAA": 1, "BBB": 2, "CCC": 3},
	})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := Key("report", "u", map[string]interface{}{
			"holdings": map[string]float64{"CCC": 3, "AAA": 1, "BBB": 2},
		})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clock := newTestCache(t)
	c.Set("k", "v")

	clock.Advance(DefaultTTL - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestCache_ClearPattern(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("volatility:admin:1", 1)
	c.Set("stress:admin:2", 2)
	c.Set("volatility:bob:3", 3)

	removed := c.Clear("*admin*")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("volatility:admin:1")
	assert.False(t, ok)
	_, ok = c.Get("stress:admin:2")
	assert.False(t, ok)
	_, ok = c.Get("volatility:bob:3")
	assert.True(t, ok)
}

func TestCache_ClearAllIncludesMemo(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("a", 1)
	c.MemoSet("m", []byte("x"))

	assert.Equal(t, 2, c.Clear(""))
	_, ok := c.MemoGet("m")
	assert.False(t, ok)
}

func TestCache_GetOrComputeDoesNotCacheFailures(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	failing := func() (interface{}, error) {
		calls++
		return nil, errors.New("boom")
	}

	_, err := c.GetOrCompute("k", failing)
	assert.Error(t, err)
	_, err = c.GetOrCompute("k", failing)
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCompute("k", func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	v, err = c.GetOrCompute("k", func() (interface{}, error) { return "recomputed", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCached_Typed(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	compute := func() (float64, error) {
		calls++
		return 0.25, nil
	}

	v, err := Cached(c, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
	v, err = Cached(c, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
	assert.Equal(t, 1, calls)
}

func TestCached_TypeMismatchRecomputes(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("k", "stale")

	v, err := Cached(c, "k", func() (float64, error) { return 0.5, nil })
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	stored, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 0.5, stored)
}

func TestCache_Sweep(t *testing.T) {
	c, clock := newTestCache(t)
	c.Set("old", 1)
	c.MemoSet("old-memo", []byte("x"))
	clock.Advance(DefaultTTL)
	c.Set("new", 2)

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestCache_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	clock := testutil.NewFakeClock(time.Now())
	c := NewCache(time.Minute, zerolog.Nop(), WithClock(clock.Now), WithRegisterer(reg))

	c.Set("k", 1)
	c.Get("k")
	c.Get("missing")

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetCounter().GetValue()
	}
	assert.Equal(t, 1.0, values["risk_cache_hits_total"])
	assert.Equal(t, 1.0, values["risk_cache_misses_total"])

	// a second cache on the same registry reuses the collectors
	NewCache(time.Minute, zerolog.Nop(), WithRegisterer(reg))
}
