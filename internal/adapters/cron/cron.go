// Package cron re-runs the season recalculation on a fixed interval.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/ace/pkg/logger"
)

// ErrScheduler wraps gocron failures.
var ErrScheduler = errors.New("scheduler")

// Task is the periodic work. ctx is canceled when the scheduler stops.
type Task func(ctx context.Context) error

// Scheduler runs one Task every interval. Runs never overlap: a tick that
// arrives while the previous run is still busy is rescheduled.
type Scheduler struct {
	interval  time.Duration
	task      Task
	name      string
	immediate bool
	logger    logger.Logger

	mu     sync.Mutex
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithName names the job in logs.
func WithName(name string) Option {
	return func(s *Scheduler) {
		if name != "" {
			s.name = name
		}
	}
}

// WithStartImmediately runs the task once at Start instead of after the
// first interval.
func WithStartImmediately() Option {
	return func(s *Scheduler) {
		s.immediate = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scheduler. An interval of zero or less disables it.
func New(interval time.Duration, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{interval: interval, task: task, name: "recalculate"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("cron")
	}
	return s
}

// Enabled reports whether Start schedules anything.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0 && s.task != nil
}

// Start schedules the task. It is a no-op when the scheduler is disabled
// or already started.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info(ctx, "scheduled recalculation disabled")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScheduler, err)
	}
	runCtx, cancel := context.WithCancel(ctx)

	jobOpts := []gocron.JobOption{
		gocron.WithName(s.name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.immediate {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.run(runCtx) }),
		jobOpts...,
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return fmt.Errorf("%w: %w", ErrScheduler, err)
	}

	sched.Start()
	s.sched, s.cancel = sched, cancel
	s.logger.Info(ctx, "scheduled recalculation started",
		logger.String("job", s.name),
		logger.Duration("interval", s.interval),
	)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.task(ctx); err != nil {
		s.logger.Error(ctx, "scheduled run failed", logger.String("job", s.name), logger.Error(err))
		return
	}
	s.logger.Info(ctx, "scheduled run finished",
		logger.String("job", s.name),
		logger.Duration("took", time.Since(start)),
	)
}

// Shutdown cancels a running task and waits for the scheduler to stop.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return nil
	}
	s.cancel()
	err := s.sched.Shutdown()
	s.sched, s.cancel = nil, nil
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScheduler, err)
	}
	return nil
}
