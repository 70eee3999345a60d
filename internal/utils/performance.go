// Package utils holds small helpers shared across packages.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration above which a computation is logged as slow.
const SlowOperationThreshold = 5 * time.Second

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func (s *Service) Covariance(...) {
//	    defer utils.OperationTimer("covariance", s.log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	return operationTimer(operation, log, time.Now)
}

func operationTimer(operation string, log zerolog.Logger, now func() time.Time) func() {
	start := now()

	return func() {
		duration := now().Sub(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > SlowOperationThreshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
	}
}
