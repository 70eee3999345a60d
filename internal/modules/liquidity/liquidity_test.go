package liquidity

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	testutil "github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/testing"
)

func ptr(v float64) *float64 { return &v }

func alertTypes(alerts []Alert, symbol string) []string {
	var out []string
	for _, a := range alerts {
		if a.Symbol == symbol {
			out = append(out, a.Type)
		}
	}
	return out
}

func TestVolumeScore(t *testing.T) {
	tests := []struct {
		adv  float64
		want float64
	}{
		{0, 1},
		{1e5, 1},
		{1e6, 3},
		{1e9, 9},
		{1e12, 10},
		{1e3, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, VolumeScore(tt.adv), 1e-9, tt.adv)
	}
}

func TestSpreadScore(t *testing.T) {
	assert.Equal(t, 1.0, SpreadScore(nil), "missing spread is worst case")
	assert.InDelta(t, 9.6, SpreadScore(ptr(0.001)), 1e-9)
	assert.Equal(t, 1.0, SpreadScore(ptr(0.05)))
	assert.InDelta(t, 9.96, SpreadScore(ptr(MinSpread)), 1e-9)
}

func TestBucket(t *testing.T) {
	assert.Equal(t, High, Bucket(8))
	assert.Equal(t, Medium, Bucket(5))
	assert.Equal(t, Low, Bucket(4.99))
}

func TestSpread(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("quote", func(t *testing.T) {
		s, src := Spread([]domain.Bar{{Date: day, High: 101, Low: 99, Close: 100, Bid: ptr(99.9), Ask: ptr(100.1)}})
		require.NotNil(t, s)
		assert.Equal(t, "quote", src)
		assert.InDelta(t, 0.002, *s, 1e-12)
	})

	t.Run("high low proxy", func(t *testing.T) {
		s, src := Spread([]domain.Bar{{Date: day, High: 102, Low: 98, Close: 100}})
		require.NotNil(t, s)
		assert.Equal(t, "high_low_proxy", src)
		assert.InDelta(t, 0.04, *s, 1e-12)
	})

	t.Run("clipped", func(t *testing.T) {
		s, _ := Spread([]domain.Bar{{Date: day, High: 100, Low: 100, Close: 100}})
		require.NotNil(t, s)
		assert.Equal(t, MinSpread, *s)
	})

	t.Run("unavailable", func(t *testing.T) {
		s, src := Spread(nil)
		assert.Nil(t, s)
		assert.Equal(t, "unavailable", src)
	})
}

func TestAnalyze(t *testing.T) {
	dates := testutil.BusinessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 30)
	liquid := testutil.ConstantBars("LIQ", dates, 50, 5_000_000)
	for i := range liquid.Bars {
		liquid.Bars[i].Bid = ptr(49.99)
		liquid.Bars[i].Ask = ptr(50.01)
	}
	thin := testutil.ConstantBars("THIN", dates, 10, 20_000)
	for i := range thin.Bars {
		thin.Bars[i].High = 10.3
		thin.Bars[i].Low = 9.7
	}
	dead := testutil.ConstantBars("DEAD", dates, 5, 0)

	s := NewScorer(0, zerolog.Nop())
	m := s.Analyze([]Position{
		{Symbol: "LIQ", Shares: 1_000_000, Price: 50, Bars: liquid.Bars},
		{Symbol: "THIN", Shares: 10_000, Price: 10, Bars: thin.Bars},
		{Symbol: "DEAD", Shares: 100, Price: 5, Bars: dead.Bars},
	})

	require.Len(t, m.PositionDetails, 3)
	byID := map[string]PositionDetail{}
	for _, d := range m.PositionDetails {
		byID[d.Symbol] = d
	}

	liq := byID["LIQ"]
	assert.Equal(t, 5_000_000.0, liq.AvgVolume)
	require.NotNil(t, liq.LiquidationDays)
	assert.Equal(t, 2, *liq.LiquidationDays, "1M shares at 10% of 5M ADV")
	assert.Equal(t, "quote", liq.SpreadSource)

	thinD := byID["THIN"]
	require.NotNil(t, thinD.LiquidationDays)
	assert.Equal(t, 5, *thinD.LiquidationDays)
	assert.Contains(t, alertTypes(m.Alerts, "THIN"), "low_volume")
	assert.Contains(t, alertTypes(m.Alerts, "THIN"), "wide_spread")

	deadD := byID["DEAD"]
	assert.False(t, deadD.CanLiquidate)
	assert.Nil(t, deadD.LiquidationDays)
	assert.Contains(t, alertTypes(m.Alerts, "DEAD"), "cannot_liquidate")
	assert.Contains(t, alertTypes(m.Alerts, "DEAD"), "zero_volume")

	assert.InDelta(t, 1, m.Distribution.High+m.Distribution.Medium+m.Distribution.Low, 1e-12)
	assert.Equal(t, 5, m.Overview.MaxLiquidationDays)
	assert.Equal(t, "THIN", m.PositionDetails[0].Symbol, "least liquid first")
	assert.Contains(t, alertTypes(m.Alerts, "THIN"), "very_illiquid")
}

func TestAnalyze_PortfolioAlert(t *testing.T) {
	dates := testutil.BusinessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 25)
	s := NewScorer(DefaultADVFraction, zerolog.Nop())
	m := s.Analyze([]Position{
		{Symbol: "THIN", Shares: 100, Price: 10, Bars: testutil.ConstantBars("THIN", dates, 10, 1_000).Bars},
	})

	assert.Less(t, m.Overview.Score, float64(PortfolioAlertScore))
	assert.Contains(t, alertTypes(m.Alerts, ""), "portfolio_illiquid")
}
