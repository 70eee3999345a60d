package scheduler

import (
	"github.com/rs/zerolog"
)

// Sweeper drops expired entries. Implemented by calculations.Cache.
type Sweeper interface {
	Sweep() int
	Len() int
}

// CacheSweepJob evicts expired risk results so idle keys do not accumulate
type CacheSweepJob struct {
	cache Sweeper
	log   zerolog.Logger
}

// NewCacheSweepJob creates a new CacheSweepJob
func NewCacheSweepJob(cache Sweeper, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		cache: cache,
		log:   log.With().Str("job", "cache_sweep").Logger(),
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Run executes the sweep
func (j *CacheSweepJob) Run() error {
	removed := j.cache.Sweep()
	if removed > 0 {
		j.log.Debug().
			Int("removed", removed).
			Int("remaining", j.cache.Len()).
			Msg("Swept expired cache entries")
	}
	return nil
}
