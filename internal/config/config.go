// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/market_regime"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/factors"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/scoring"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/stress"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/volatility"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for databases (always absolute)
	HistoryDB       string // Path of the daily_prices database, relative paths resolve under DataDir
	LogLevel        string
	Port            int
	DevMode         bool
	ReferenceSymbol string
	VolModel        string
	Confidence      float64
	EWMALambda      float64
	FactorWindow    int
	RegimeWindow    int
	ForecastWorkers int // instruments forecast in parallel
	CacheTTL        time.Duration
	CacheSweep      string        // cron spec for expired-entry sweeps
	HistoryLookback time.Duration // zero loads the full history
	ConfigFile      string

	Tuning Tuning
}

// Tuning holds the model parameters that may be overridden from the YAML file.
type Tuning struct {
	Scenarios    []stress.Scenario        `yaml:"scenarios"`
	ScoreBounds  map[string]scoring.Bound `yaml:"score_bounds"`
	ScoreWeights map[string]float64       `yaml:"score_weights"`
	Regime       market_regime.Thresholds `yaml:"regime_thresholds"`
	Factors      []factors.Factor         `yaml:"factors"`
}

// DefaultTuning returns the built-in model parameters.
func DefaultTuning(reference string) Tuning {
	return Tuning{
		Scenarios:    stress.DefaultScenarios(),
		ScoreBounds:  scoring.DefaultBounds(),
		ScoreWeights: scoring.DefaultWeights(),
		Regime:       market_regime.DefaultThresholds(),
		Factors:      factors.DefaultFactors(reference),
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("RISK_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	historyDB := getEnv("RISK_HISTORY_DB", "history.db")
	if !filepath.IsAbs(historyDB) {
		historyDB = filepath.Join(dataDir, historyDB)
	}

	reference := getEnv("RISK_REFERENCE_SYMBOL", "SPY")
	cfg := &Config{
		DataDir:         dataDir,
		HistoryDB:       historyDB,
		LogLevel:        getEnv("RISK_LOG_LEVEL", "info"),
		Port:            getEnvAsInt("RISK_PORT", 8001),
		DevMode:         getEnvAsBool("RISK_DEV_MODE", false),
		ReferenceSymbol: reference,
		VolModel:        getEnv("RISK_VOL_MODEL", volatility.EWMA30D.String()),
		Confidence:      getEnvAsFloat("RISK_CONFIDENCE", 0.95),
		EWMALambda:      getEnvAsFloat("RISK_EWMA_LAMBDA", 0.94),
		FactorWindow:    getEnvAsInt("RISK_FACTOR_WINDOW", factors.DefaultWindow),
		RegimeWindow:    getEnvAsInt("RISK_REGIME_WINDOW", market_regime.DefaultWindow),
		ForecastWorkers: getEnvAsInt("RISK_FORECAST_WORKERS", volatility.DefaultConcurrency),
		CacheTTL:        time.Duration(getEnvAsInt("RISK_CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheSweep:      getEnv("RISK_CACHE_SWEEP", "@every 1m"),
		HistoryLookback: time.Duration(getEnvAsInt("RISK_HISTORY_LOOKBACK_DAYS", 0)) * 24 * time.Hour,
		ConfigFile:      getEnv("RISK_CONFIG_FILE", ""),
		Tuning:          DefaultTuning(reference),
	}

	if cfg.ConfigFile != "" {
		if err := cfg.LoadTuning(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadTuning overlays the YAML file at path on the current tuning. Sections
// absent from the file keep their current values; score bounds and weights are
// merged per component.
func (c *Config) LoadTuning(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Tuning
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(file.Scenarios) > 0 {
		c.Tuning.Scenarios = file.Scenarios
	}
	if len(file.Factors) > 0 {
		c.Tuning.Factors = file.Factors
	}
	for name, b := range file.ScoreBounds {
		c.Tuning.ScoreBounds[name] = b
	}
	for name, w := range file.ScoreWeights {
		c.Tuning.ScoreWeights[name] = w
	}
	if file.Regime != (market_regime.Thresholds{}) {
		c.Tuning.Regime = file.Regime
	}
	return nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if _, err := volatility.ParseModel(c.VolModel); err != nil {
		return fmt.Errorf("RISK_VOL_MODEL: %w", err)
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("RISK_CONFIDENCE must be in (0,1), got %v", c.Confidence)
	}
	if c.EWMALambda <= 0 || c.EWMALambda >= 1 {
		return fmt.Errorf("RISK_EWMA_LAMBDA must be in (0,1), got %v", c.EWMALambda)
	}
	if c.FactorWindow < factors.MinWindow {
		return fmt.Errorf("RISK_FACTOR_WINDOW must be at least %d, got %d", factors.MinWindow, c.FactorWindow)
	}
	if c.RegimeWindow < 2 {
		return fmt.Errorf("RISK_REGIME_WINDOW must be at least 2, got %d", c.RegimeWindow)
	}
	if c.ForecastWorkers < 1 {
		return fmt.Errorf("RISK_FORECAST_WORKERS must be positive, got %d", c.ForecastWorkers)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("RISK_CACHE_TTL_SECONDS must be positive")
	}
	if c.ReferenceSymbol == "" {
		return fmt.Errorf("RISK_REFERENCE_SYMBOL is required")
	}
	for _, sc := range c.Tuning.Scenarios {
		if sc.Name == "" || !sc.End.After(sc.Start) {
			return fmt.Errorf("scenario %q must have a name and end after start", sc.Name)
		}
	}
	for name, b := range c.Tuning.ScoreBounds {
		if b.High <= b.Low && b.Max <= 0 {
			return fmt.Errorf("score bound %s: needs high > low or a positive max", name)
		}
	}
	for name, w := range c.Tuning.ScoreWeights {
		if w < 0 {
			return fmt.Errorf("score weight %s must not be negative", name)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
