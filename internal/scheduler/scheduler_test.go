package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "descriptor", schedule: "@every 1m"},
		{name: "five fields", schedule: "*/5 * * * *"},
		{name: "invalid", schedule: "every minute", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddJob(tt.schedule, &countingJob{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	assert.EqualError(t, s.RunNow(job), "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

type fakeSweeper struct {
	swept int
	left  int
}

func (f *fakeSweeper) Sweep() int { return f.swept }
func (f *fakeSweeper) Len() int   { return f.left }

func TestCacheSweepJob(t *testing.T) {
	job := NewCacheSweepJob(&fakeSweeper{swept: 3, left: 1}, zerolog.Nop())
	assert.Equal(t, "cache_sweep", job.Name())
	assert.NoError(t, job.Run())
}

type fakeChecker struct {
	name string
	err  error
	ran  bool
}

func (f *fakeChecker) Name() string { return f.name }

func (f *fakeChecker) HealthCheck(ctx context.Context) error {
	f.ran = true
	return f.err
}

func TestHealthCheckJob(t *testing.T) {
	broken := &fakeChecker{name: "history", err: errors.New("disk image is malformed")}
	healthy := &fakeChecker{name: "other"}

	err := NewHealthCheckJob(zerolog.Nop(), broken, healthy).Run()
	assert.ErrorIs(t, err, broken.err)
	assert.True(t, healthy.ran, "later databases are still checked")

	assert.NoError(t, NewHealthCheckJob(zerolog.Nop(), healthy).Run())
}
