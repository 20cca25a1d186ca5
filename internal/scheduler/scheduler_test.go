package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTasksRunPeriodically(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	s.Register("counter", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestStopPreventsFurtherRuns(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	s.Register("counter", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	s := New(zerolog.Nop())

	var finished atomic.Bool
	s.Register("slow", 5*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	assert.True(t, finished.Load())
}

func TestFailingTaskKeepsRunning(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	s.Register("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("transient failure")
	})

	s.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}
