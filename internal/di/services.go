package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/config"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/market_regime"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/calculations"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/covariance"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/factors"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/history"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/liquidity"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/risk"
	riskhandlers "github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/risk/handlers"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/stress"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/volatility"
)

// InitializeServices builds the risk components on top of the databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	model, err := volatility.ParseModel(cfg.VolModel)
	if err != nil {
		return fmt.Errorf("invalid volatility model: %w", err)
	}

	container.Registry = prometheus.NewRegistry()
	container.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	container.HistoryDBClient = history.NewHistoryDB(container.HistoryDB.Conn(), log)

	container.Cache = calculations.NewCache(cfg.CacheTTL, log, calculations.WithRegisterer(container.Registry))
	container.Forecaster = volatility.NewForecaster(container.Cache, log)
	container.Forecaster.SetConcurrency(cfg.ForecastWorkers)
	container.CovarianceModel = covariance.NewBuilder(container.Forecaster, log)
	container.FactorEngine = factors.NewEngine(cfg.Tuning.Factors, cfg.FactorWindow, log)
	container.LiquidityScorer = liquidity.NewScorer(liquidity.DefaultADVFraction, log)
	container.RegimeClassifier = market_regime.NewClassifier(cfg.Tuning.Regime, cfg.RegimeWindow, log)
	container.StressEngine = stress.NewEngine(cfg.Tuning.Scenarios, stress.DefaultMinCoverage, stress.DefaultMinDays, log)

	container.RiskService = risk.NewService(
		risk.Config{
			Reference:    cfg.ReferenceSymbol,
			VolModel:     model,
			Confidence:   cfg.Confidence,
			EWMALambda:   cfg.EWMALambda,
			ScoreBounds:  cfg.Tuning.ScoreBounds,
			ScoreWeights: cfg.Tuning.ScoreWeights,
		},
		container.Cache,
		container.Forecaster,
		container.CovarianceModel,
		container.FactorEngine,
		container.LiquidityScorer,
		container.RegimeClassifier,
		container.StressEngine,
		log,
	)
	container.RiskHandler = riskhandlers.NewHandler(container.RiskService, container.HistoryDBClient, cfg.HistoryLookback, log)

	log.Info().
		Str("reference", cfg.ReferenceSymbol).
		Str("vol_model", model.String()).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Risk services initialized")
	return nil
}
