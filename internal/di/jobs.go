package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/config"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/scheduler"
)

// healthCheckSchedule runs the history integrity check every six hours
const healthCheckSchedule = "@every 6h"

// RegisterJobs creates the background jobs and registers them with a new scheduler.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)

	jobs := &JobInstances{
		CacheSweep:  scheduler.NewCacheSweepJob(container.Cache, log),
		HealthCheck: scheduler.NewHealthCheckJob(log, container.HistoryDB),
	}

	if err := container.Scheduler.AddJob(cfg.CacheSweep, jobs.CacheSweep); err != nil {
		return nil, fmt.Errorf("failed to register cache sweep job: %w", err)
	}
	if err := container.Scheduler.AddJob(healthCheckSchedule, jobs.HealthCheck); err != nil {
		return nil, fmt.Errorf("failed to register health check job: %w", err)
	}
	return jobs, nil
}
