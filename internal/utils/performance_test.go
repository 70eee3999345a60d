package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOperationTimer_LogsSlowOperations(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	done := operationTimer("covariance", log, now)
	clock = clock.Add(SlowOperationThreshold + time.Second)
	done()

	out := buf.String()
	assert.Contains(t, out, `"operation":"covariance"`)
	assert.Contains(t, out, "Operation completed")
	assert.Contains(t, out, "Slow operation detected")
}

func TestOperationTimer_FastOperation(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	OperationTimer("fast", log)()

	assert.Contains(t, buf.String(), "Operation completed")
	assert.NotContains(t, buf.String(), "Slow operation detected")
}
