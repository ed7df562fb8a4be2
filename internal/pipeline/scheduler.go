// Package pipeline runs the processing tasks on their own intervals while
// letting only one of them touch the store at a time.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of pipeline work. Run must re-read whatever state it
// needs from the store on every call.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// PeriodicTask pairs a task with the pause between its cycles
type PeriodicTask struct {
	Task     Task
	Interval time.Duration
}

// Scheduler runs each task in its own loop. A shared lock makes every
// cycle exclusive, so the store has a single writer at any moment.
type Scheduler struct {
	tasks  []PeriodicTask
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

// NewScheduler creates a scheduler for the given tasks, kept in pipeline order
func NewScheduler(logger *zap.SugaredLogger, tasks ...PeriodicTask) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		logger: logger,
	}
}

// Tasks returns the scheduled tasks in pipeline order
func (s *Scheduler) Tasks() []PeriodicTask {
	return s.tasks
}

// Run starts every task loop and blocks until ctx is cancelled. A failing
// cycle is logged and the loop carries on with the next one.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, pt := range s.tasks {
		g.Go(func() error {
			s.loop(ctx, pt)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, pt PeriodicTask) {
	s.logger.Infof("starting task %s (interval: %v)", pt.Task.Name(), pt.Interval)

	ticker := time.NewTicker(pt.Interval)
	defer ticker.Stop()

	for {
		if err := s.cycle(ctx, pt.Task); err != nil && ctx.Err() == nil {
			s.logger.Errorf("error in task %s: %v", pt.Task.Name(), err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Infof("stopping task %s", pt.Task.Name())
			return
		}
	}
}

// RunOnce runs one cycle of every task in pipeline order. Every task runs
// even if an earlier one fails; the errors are combined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error
	for _, pt := range s.tasks {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := s.cycle(ctx, pt.Task); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", pt.Task.Name(), err))
		}
	}
	return errs
}

// cycle runs one exclusive iteration of a task, turning a panic into an error
func (s *Scheduler) cycle(ctx context.Context, task Task) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger := s.logger.With("task", task.Name(), "cycle", uuid.NewString())
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic in task %s: %v", task.Name(), r)
		}
		logger.Debugf("cycle finished in %s", time.Since(start))
	}()

	return task.Run(ctx)
}

// Sequence runs several tasks back to back as a single task
type Sequence struct {
	name  string
	tasks []Task
}

// NewSequence creates a task that runs tasks in order, stopping at the first error
func NewSequence(name string, tasks ...Task) *Sequence {
	return &Sequence{name: name, tasks: tasks}
}

// Name implements Task
func (q *Sequence) Name() string {
	return q.name
}

// Run implements Task
func (q *Sequence) Run(ctx context.Context) error {
	for _, t := range q.tasks {
		if err := t.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return nil
}
