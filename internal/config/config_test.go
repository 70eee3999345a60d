package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/scoring"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/volatility"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RISK_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.HistoryDB)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "ewma_30d", cfg.VolModel)
	assert.Equal(t, 0.95, cfg.Confidence)
	assert.Equal(t, 0.94, cfg.EWMALambda)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, "@every 1m", cfg.CacheSweep)
	assert.Equal(t, "SPY", cfg.ReferenceSymbol)
	assert.Zero(t, cfg.HistoryLookback)
	assert.Equal(t, volatility.DefaultConcurrency, cfg.ForecastWorkers)
	assert.Len(t, cfg.Tuning.Scenarios, 8)
	assert.Equal(t, "SPY", cfg.Tuning.Factors[0].Proxy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RISK_DATA_DIR", t.TempDir())
	t.Setenv("RISK_PORT", "9100")
	t.Setenv("RISK_VOL_MODEL", "GARCH")
	t.Setenv("RISK_CONFIDENCE", "0.99")
	t.Setenv("RISK_CACHE_TTL_SECONDS", "60")
	t.Setenv("RISK_HISTORY_DB", "/tmp/prices.db")
	t.Setenv("RISK_DEV_MODE", "true")
	t.Setenv("RISK_HISTORY_LOOKBACK_DAYS", "730")
	t.Setenv("RISK_FACTOR_WINDOW", "3")
	t.Setenv("RISK_FORECAST_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "GARCH", cfg.VolModel)
	assert.Equal(t, 0.99, cfg.Confidence)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "/tmp/prices.db", cfg.HistoryDB)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 730*24*time.Hour, cfg.HistoryLookback)
	assert.Equal(t, 3, cfg.FactorWindow)
	assert.Equal(t, 2, cfg.ForecastWorkers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown model", key: "RISK_VOL_MODEL", value: "lstm"},
		{name: "confidence above one", key: "RISK_CONFIDENCE", value: "1.2"},
		{name: "lambda zero", key: "RISK_EWMA_LAMBDA", value: "0"},
		{name: "negative ttl", key: "RISK_CACHE_TTL_SECONDS", value: "-5"},
		{name: "tiny window", key: "RISK_FACTOR_WINDOW", value: "1"},
		{name: "factor window without residual", key: "RISK_FACTOR_WINDOW", value: "2"},
		{name: "regime window one", key: "RISK_REGIME_WINDOW", value: "1"},
		{name: "no forecast workers", key: "RISK_FORECAST_WORKERS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RISK_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - name: Flash Crash
    start: 2010-05-06T00:00:00Z
    end: 2010-05-07T00:00:00Z
score_bounds:
  volatility:
    low: 0.05
    high: 0.30
score_weights:
  stress: 2
regime_thresholds:
  crisis_volatility: 0.5
  crisis_correlation: 0.8
  cautious_volatility: 0.3
  cautious_correlation: 0.6
  bull_volatility: 0.2
  bull_correlation: 0.4
`), 0644))

	t.Setenv("RISK_DATA_DIR", t.TempDir())
	t.Setenv("RISK_CONFIG_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Tuning.Scenarios, 1)
	assert.Equal(t, "Flash Crash", cfg.Tuning.Scenarios[0].Name)
	assert.Equal(t, scoring.Bound{Low: 0.05, High: 0.30}, cfg.Tuning.ScoreBounds[scoring.Volatility])
	assert.Equal(t, scoring.DefaultBounds()[scoring.Stress], cfg.Tuning.ScoreBounds[scoring.Stress])
	assert.Equal(t, 2.0, cfg.Tuning.ScoreWeights[scoring.Stress])
	assert.Equal(t, 0.5, cfg.Tuning.Regime.CrisisVolatility)
	assert.Len(t, cfg.Tuning.Factors, 5, "factors not in file keep defaults")
}

func TestLoadTuning_Errors(t *testing.T) {
	cfg := &Config{Tuning: DefaultTuning("SPY")}
	assert.Error(t, cfg.LoadTuning(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scenarios: [unterminated"), 0644))
	assert.Error(t, cfg.LoadTuning(bad))
}

func TestValidate_Scenario(t *testing.T) {
	cfg := &Config{
		VolModel:        "ewma_30d",
		Confidence:      0.95,
		EWMALambda:      0.94,
		FactorWindow:    60,
		RegimeWindow:    60,
		ForecastWorkers: 4,
		CacheTTL:        time.Minute,
		ReferenceSymbol: "SPY",
		Tuning:          DefaultTuning("SPY"),
	}
	require.NoError(t, cfg.Validate())

	cfg.Tuning.Scenarios[0].End = cfg.Tuning.Scenarios[0].Start
	assert.Error(t, cfg.Validate())
}
