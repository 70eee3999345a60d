package risk

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/market_regime"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/calculations"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/covariance"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/factors"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/liquidity"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/stress"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/volatility"
	testutil "github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/testing"
)

func newTestService(t *testing.T) (*Service, *testutil.FakeClock) {
	t.Helper()
	log := zerolog.Nop()
	clock := testutil.NewFakeClock(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	cache := calculations.NewCache(calculations.DefaultTTL, log, calculations.WithClock(clock.Now))
	forecaster := volatility.NewForecaster(cache, log)

	svc := NewService(
		Config{Reference: "SPY", VolModel: volatility.EWMA30D, Confidence: 0.95},
		cache,
		forecaster,
		covariance.NewBuilder(forecaster, log),
		factors.NewEngine(factors.DefaultFactors("SPY"), factors.DefaultWindow, log),
		liquidity.NewScorer(liquidity.DefaultADVFraction, log),
		market_regime.NewClassifier(market_regime.DefaultThresholds(), market_regime.DefaultWindow, log),
		stress.NewEngine(stress.DefaultScenarios(), stress.DefaultMinCoverage, stress.DefaultMinDays, log),
		log,
	)
	svc.now = clock.Now
	return svc, clock
}

func testRequest() ReportRequest {
	dates := testutil.BusinessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 320)
	series := testutil.CorrelatedPrices([]testutil.SeriesSpec{
		{Symbol: "SPY", Beta: 1, Vol: 0.002},
		{Symbol: "AAA", Beta: 1.2, Vol: 0.010},
		{Symbol: "BBB", Beta: 0.6, Vol: 0.008},
		{Symbol: "MTUM", Beta: 1.1, Vol: 0.004},
	}, dates, 0.0003, 0.01, 11)

	return ReportRequest{
		User: "alice",
		Holdings: []domain.Holding{
			{Symbol: "AAA", Shares: 100},
			{Symbol: "BBB", Shares: 200},
		},
		Series:     series,
		Sectors:    map[string]string{"AAA": "Technology", "BBB": "Utilities"},
		MarketCaps: map[string]float64{"AAA": 250e9, "BBB": 8e9},
	}
}

func TestService_Report(t *testing.T) {
	svc, _ := newTestService(t)

	r, err := svc.Report(context.Background(), testRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Greater(t, r.PortfolioValue, 0.0)
	assert.Len(t, r.Weights, 2)

	require.NotNil(t, r.Volatility)
	assert.Len(t, r.Volatility.Forecasts, 2)

	require.NotNil(t, r.Contributions)
	sum := 0.0
	for _, c := range r.Contributions.Contributions {
		sum += c.Percent
	}
	assert.InDelta(t, 100, sum, 1e-6)

	require.NotNil(t, r.Covariance)
	assert.Equal(t, []string{"AAA", "BBB"}, r.Covariance.Model.Symbols)
	require.NotNil(t, r.Covariance.AvgCorrelation)

	assert.Len(t, r.Concentration.Sectors.Buckets, 2)
	assert.Equal(t, 2, r.Liquidity.Overview.Positions)

	require.NotNil(t, r.Factors)
	assert.Contains(t, r.Factors.PortfolioBeta, factors.MarketFactor)

	require.NotNil(t, r.VaR)
	require.Len(t, r.VaR.Levels, 2)
	assert.Less(t, r.VaR.Levels[0].VaRAmount, 0.0)
	assert.Less(t, r.VaR.Levels[1].VaR, r.VaR.Levels[0].VaR, "99% loss is deeper")

	// Synthetic history starts in 2024: every historical scenario is excluded.
	assert.Empty(t, r.Stress.Results)
	assert.Len(t, r.Stress.Excluded, len(stress.DefaultScenarios()))

	require.NotNil(t, r.Score)
	assert.GreaterOrEqual(t, r.Score.Overall, 0.0)
	assert.LessOrEqual(t, r.Score.Overall, 1.0)
	assert.NotEmpty(t, r.Diagnostics)
}

func TestService_ReportIsCached(t *testing.T) {
	svc, clock := newTestService(t)
	req := testRequest()

	first, err := svc.Report(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Report(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	clock.Advance(calculations.DefaultTTL)
	third, err := svc.Report(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.InDelta(t, first.Score.Overall, third.Score.Overall, 1e-12)
}

func TestService_CacheKeyChangesWithHoldings(t *testing.T) {
	svc, _ := newTestService(t)
	req := testRequest()

	first, err := svc.Report(context.Background(), req)
	require.NoError(t, err)

	req.Holdings = append(req.Holdings, domain.Holding{Symbol: "MTUM", Shares: 10})
	second, err := svc.Report(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, second.Weights, 3)
}

func TestService_ClearInvalidates(t *testing.T) {
	svc, _ := newTestService(t)
	req := testRequest()

	first, err := svc.Report(context.Background(), req)
	require.NoError(t, err)
	assert.Positive(t, svc.Cache().Clear(OpReport+":alice:*"))

	second, err := svc.Report(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestService_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("no holdings", func(t *testing.T) {
		req := testRequest()
		req.Holdings = nil
		_, err := svc.Report(ctx, req)
		assert.True(t, domain.IsDegenerateInput(err))
	})

	t.Run("unknown model", func(t *testing.T) {
		req := testRequest()
		req.VolModel = "lstm"
		_, err := svc.Volatility(ctx, req)
		assert.ErrorIs(t, err, domain.ErrUnknownModel)
	})

	t.Run("bad confidence", func(t *testing.T) {
		req := testRequest()
		req.Confidence = 1.5
		_, err := svc.VaR(ctx, req)
		assert.True(t, domain.IsDegenerateInput(err))
	})

	t.Run("missing reference is soft in the report", func(t *testing.T) {
		req := testRequest()
		req.Series = req.Series[1:]
		r, err := svc.Report(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, r.Covariance)
		assert.Nil(t, r.Factors)
		assert.NotNil(t, r.Score)

		_, err = svc.Covariance(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
	})
}

func TestService_RequiredSymbols(t *testing.T) {
	svc, _ := newTestService(t)
	got := svc.RequiredSymbols([]domain.Holding{{Symbol: "AAA"}, {Symbol: "SPY"}})
	assert.Equal(t, []string{"AAA", "SPY", "MTUM", "IWM", "VLUE", "QUAL"}, got)
}
