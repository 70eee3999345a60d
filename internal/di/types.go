// Package di provides dependency injection wiring and initialization.
//
// The Container holds every long-lived component of the process and is the
// single source of truth handed to the server.
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/database"
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
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	HistoryDB *database.DB

	// Data access
	HistoryDBClient *history.HistoryDB

	// Metrics
	Registry *prometheus.Registry

	// Risk components
	Cache            *calculations.Cache
	Forecaster       *volatility.Forecaster
	CovarianceModel  *covariance.Builder
	FactorEngine     *factors.Engine
	LiquidityScorer  *liquidity.Scorer
	RegimeClassifier *market_regime.Classifier
	StressEngine     *stress.Engine
	RiskService      *risk.Service
	RiskHandler      *riskhandlers.Handler

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	CacheSweep  scheduler.Job
	HealthCheck scheduler.Job
}

// Close releases the databases held by the container
func (c *Container) Close() error {
	if c.HistoryDB != nil {
		return c.HistoryDB.Close()
	}
	return nil
}
