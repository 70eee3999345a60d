package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/config"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/di"
	testutil "github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/testing"
)

func setupServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:         dir,
		HistoryDB:       filepath.Join(dir, "history.db"),
		DevMode:         true,
		ReferenceSymbol: "SPY",
		VolModel:        "ewma_30d",
		Confidence:      0.95,
		EWMALambda:      0.94,
		FactorWindow:    60,
		RegimeWindow:    60,
		ForecastWorkers: 2,
		CacheTTL:        time.Minute,
		CacheSweep:      "@every 1m",
		Tuning:          config.DefaultTuning("SPY"),
	}
	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container, Jobs: jobs, DevMode: true}), container
}

func seedHistory(t *testing.T, c *di.Container) {
	t.Helper()
	dates := testutil.BusinessDays(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), 200)
	series := testutil.CorrelatedPrices([]testutil.SeriesSpec{
		{Symbol: "SPY", Beta: 1, Vol: 0.002},
		{Symbol: "AAA", Beta: 1.2, Vol: 0.01},
	}, dates, 0.0002, 0.01, 5)

	for _, s := range series {
		for _, b := range s.Bars {
			_, err := c.HistoryDB.Conn().ExecContext(context.Background(),
				`INSERT INTO daily_prices (symbol, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				s.Symbol, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
			require.NoError(t, err)
		}
	}
}

func do(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response["status"])
}

func TestMetrics(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "risk_cache_hits_total"))
}

func TestRiskReport_FromHistoryDB(t *testing.T) {
	s, c := setupServer(t)
	seedHistory(t, c)

	body := []byte(`{"user":"carol","holdings":[{"symbol":"AAA","shares":25}]}`)
	w := do(t, s, http.MethodPost, "/api/risk/report", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data struct {
			PortfolioValue float64            `json:"portfolio_value"`
			Weights        map[string]float64 `json:"weights"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Greater(t, response.Data.PortfolioValue, 0.0)
	assert.InDelta(t, 1.0, response.Data.Weights["AAA"], 1e-12)

	w = do(t, s, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries"`)
}

func TestSystemStatus(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Host struct {
				CPUPercent *float64 `json:"cpu_percent"`
				RAMPercent *float64 `json:"ram_percent"`
			} `json:"host"`
			Cache struct {
				TTLSeconds int `json:"ttl_seconds"`
			} `json:"cache"`
			StressScenarios []string `json:"stress_scenarios"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	require.NotNil(t, response.Data.Host.CPUPercent)
	require.NotNil(t, response.Data.Host.RAMPercent)
	assert.GreaterOrEqual(t, *response.Data.Host.CPUPercent, 0.0)
	assert.LessOrEqual(t, *response.Data.Host.CPUPercent, 100.0)
	assert.Greater(t, *response.Data.Host.RAMPercent, 0.0)
	assert.LessOrEqual(t, *response.Data.Host.RAMPercent, 100.0)
	assert.Greater(t, response.Data.Cache.TTLSeconds, 0)
	assert.Contains(t, response.Data.StressScenarios, "COVID Crash")
}

func TestRunJob(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name string
		job  string
		want int
	}{
		{name: "cache sweep", job: "cache_sweep", want: http.StatusOK},
		{name: "health check", job: "health_check", want: http.StatusOK},
		{name: "unknown", job: "reindex", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/system/jobs/"+tt.job, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
