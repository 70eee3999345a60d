package volatility

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
	testutil "github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/testing"
)

type mapMemo struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMapMemo() *mapMemo { return &mapMemo{data: map[string][]byte{}} }

func (m *mapMemo) MemoGet(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapMemo) MemoSet(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Model
	}{
		{"canonical ewma", "ewma_30d", EWMA30D},
		{"short ewma", "ewma_5d", EWMA5D},
		{"long ewma", "EWMA_200D", EWMA200D},
		{"custom half-life", "ewma_63d", Model{Kind: EWMA, HalfLife: 63}},
		{"display ewma", "EWMA (5D)", EWMA5D},
		{"garch", "garch", GARCH11},
		{"display garch", "Garch Volatility", GARCH11},
		{"display egarch", "E-Garch Volatility", EGARCH11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModel_Unknown(t *testing.T) {
	for _, name := range []string{"", "arima", "ewma_0d", "ewma_xd", "ewma"} {
		_, err := ParseModel(name)
		assert.ErrorIs(t, err, domain.ErrUnknownModel, name)
	}
}

func TestModelString(t *testing.T) {
	assert.Equal(t, "ewma_30d", EWMA30D.String())
	assert.Equal(t, "garch", GARCH11.String())
	assert.Equal(t, "egarch", EGARCH11.String())
}

func TestEWMA_ZeroReturns(t *testing.T) {
	sigma, ok := EWMAEstimator{HalfLife: 30}.Estimate(make([]float64, 100))
	require.True(t, ok)
	assert.Equal(t, 0.0, sigma)
}

func TestEWMA_Recursion(t *testing.T) {
	e := EWMAEstimator{HalfLife: 1}
	assert.InDelta(t, 0.5, e.Lambda(), 1e-12)

	// var0 = 0.01^2; var1 = 0.5*1e-4 + 0.5*4e-4 = 2.5e-4
	sigma, ok := e.Estimate([]float64{0.01, 0.02})
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(2.5e-4), sigma, 1e-12)
}

func TestFirstSuccess_FallsThrough(t *testing.T) {
	chain := []Estimator{EWMAEstimator{HalfLife: 0}, SampleEstimator{}}
	sigma, method, ok := FirstSuccess(chain, []float64{0.01, -0.01, 0.01, -0.01})
	require.True(t, ok)
	assert.Equal(t, "sample", method)
	assert.Greater(t, sigma, 0.0)
}

func TestForecast_ShortHistoryUsesSample(t *testing.T) {
	f := NewForecaster(nil, zerolog.Nop())
	returns := testutil.NormalReturns(20, 0, 0.01, 1)

	res, err := f.Forecast("AAA", returns, GARCH11)
	require.NoError(t, err)
	assert.Equal(t, "sample", res.Method)
	assert.Equal(t, "garch", res.Model)
	assert.Equal(t, 20, res.Observations)
}

func TestForecast_InsufficientData(t *testing.T) {
	f := NewForecaster(nil, zerolog.Nop())
	_, err := f.Forecast("AAA", []float64{0.01, math.NaN()}, EWMA30D)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestForecast_Clipped(t *testing.T) {
	f := NewForecaster(nil, zerolog.Nop())
	returns := make([]float64, 60)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.5
		} else {
			returns[i] = -0.5
		}
	}

	res, err := f.Forecast("WILD", returns, EWMA5D)
	require.NoError(t, err)
	assert.True(t, res.Clipped)
	assert.Equal(t, MaxAnnualVolatility, res.Sigma)
}

func TestForecast_GARCHRecoversScale(t *testing.T) {
	f := NewForecaster(nil, zerolog.Nop())
	returns := testutil.NormalReturns(600, 0, 0.01, 7)

	for _, model := range []Model{GARCH11, EGARCH11} {
		res, err := f.Forecast("AAA", returns, model)
		require.NoError(t, err, model.String())
		assert.False(t, res.Clipped)
		assert.Equal(t, model.Kind.String(), res.Method, "fit must not fall back")
		// annualized 0.01 daily is ~0.159; a fitted model should land in the neighbourhood
		assert.InDelta(t, 0.01*math.Sqrt(252), res.Sigma, 0.08, model.String())
	}
}

func TestForecaster_SetConcurrency(t *testing.T) {
	f := NewForecaster(nil, zerolog.Nop())
	assert.Equal(t, DefaultConcurrency, f.Concurrency())

	f.SetConcurrency(0)
	assert.Equal(t, DefaultConcurrency, f.Concurrency(), "non-positive values are ignored")

	f.SetConcurrency(2)
	assert.Equal(t, 2, f.Concurrency())
}

func TestForecast_Memoized(t *testing.T) {
	memo := newMapMemo()
	f := NewForecaster(memo, zerolog.Nop())
	returns := testutil.NormalReturns(100, 0, 0.02, 3)

	first, err := f.Forecast("AAA", returns, EWMA30D)
	require.NoError(t, err)
	second, err := f.Forecast("AAA", returns, EWMA30D)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, memo.sets)

	_, err = f.Forecast("AAA", returns, EWMA5D)
	require.NoError(t, err)
	assert.Equal(t, 2, memo.sets, "different model is a different key")
}

func TestForecastAll(t *testing.T) {
	f := NewForecaster(newMapMemo(), zerolog.Nop())
	dates := testutil.BusinessDays(timeZero(), 80)
	series := []timeseries.ReturnSeries{
		{Symbol: "AAA", Dates: dates, Values: testutil.NormalReturns(80, 0, 0.01, 1)},
		{Symbol: "BBB", Dates: dates, Values: testutil.NormalReturns(80, 0, 0.02, 2)},
		{Symbol: "EMPTY"},
	}

	results, skipped, err := f.ForecastAll(context.Background(), series, EWMA30D)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, skipped, "EMPTY")
	assert.Greater(t, results["BBB"].Sigma, results["AAA"].Sigma)
}

func timeZero() time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
}
