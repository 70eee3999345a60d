package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Checker is a database that can report its health
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// HealthCheckJob runs the integrity check of each database
type HealthCheckJob struct {
	databases []Checker
	timeout   time.Duration
	log       zerolog.Logger
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(log zerolog.Logger, databases ...Checker) *HealthCheckJob {
	return &HealthCheckJob{
		databases: databases,
		timeout:   30 * time.Second,
		log:       log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run checks every database and returns the first failure. All databases
// are checked even when one fails.
func (j *HealthCheckJob) Run() error {
	var firstErr error
	for _, db := range j.databases {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		err := db.HealthCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("Database healthy")
	}
	return firstErr
}
