package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TaskFunc is one run of a periodic task. Runs of the same task never
// overlap: the scheduler executes each task synchronously on its own timer
// goroutine.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	interval time.Duration
	run      TaskFunc
}

// Scheduler owns a set of named periodic tasks and stops them
// deterministically: Stop prevents new runs from starting and waits for
// in-flight runs to finish.
type Scheduler struct {
	tasks  []task
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, run TaskFunc) {
	s.tasks = append(s.tasks, task{name: name, interval: interval, run: run})
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.logger.Info().Int("tasks", len(s.tasks)).Msg("Scheduler started")
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("task", t.name).Msg("Scheduled task stopped")
			return
		case <-ticker.C:
			if err := t.run(ctx); err != nil {
				s.logger.Error().Err(err).Str("task", t.name).Msg("Scheduled task failed")
			}
		}
	}
}

// Stop cancels all tasks and blocks until in-flight runs complete.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}
