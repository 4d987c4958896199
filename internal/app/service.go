// Package service runs rating recalculations and answers the queries the
// HTTP API needs.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/ace/internal/adapters/repository"
	"github.com/okian/ace/internal/adapters/source"
	"github.com/okian/ace/internal/domain/calendar"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/metrics"
	"github.com/okian/ace/pkg/retry"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 10
	defaultQueueSize   = 10_000
	defaultReadTries   = 3
)

// Service wires the rating engine to the match source and the rating store.
type Service struct {
	src        source.Source
	store      repository.Store
	calculator *rating.Calculator
	aggregator *rating.Aggregator
	predictor  *rating.Predictor
	calendar   *calendar.Calendar

	workerCount int
	queueSize   int
	reads       retry.Policy

	mu      sync.Mutex
	running map[int]bool
	active  map[int]activeRun
	lastRun *BatchResult
	closed  bool
	runs    sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent team workers of a run.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the job queue of a run.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCalculator sets the event rating calculator.
func WithCalculator(c *rating.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithAggregator sets the season aggregator.
func WithAggregator(a *rating.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithPredictor sets the win probability predictor.
func WithPredictor(p *rating.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithCalendar sets the competition calendar used for chronological weights.
func WithCalendar(c *calendar.Calendar) Option {
	return func(s *Service) {
		if c != nil {
			s.calendar = c
		}
	}
}

// WithReadAttempts bounds retries of store reads.
func WithReadAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reads.MaxAttempts = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over a match source and a rating store.
func New(src source.Source, store repository.Store, opts ...Option) *Service {
	s := &Service{
		src:         src,
		store:       store,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		reads:       retry.New(retry.WithMaxAttempts(defaultReadTries), retry.WithRetryable(retryableRead)),
		running:     make(map[int]bool),
		active:      make(map[int]activeRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.calculator == nil {
		s.calculator = rating.NewCalculator(rating.WithLogger(s.logger))
	}
	if s.aggregator == nil {
		s.aggregator = rating.NewAggregator(s.calculator.Weights())
	}
	if s.predictor == nil {
		s.predictor = rating.NewPredictor()
	}
	if s.calendar == nil {
		s.calendar = calendar.New(nil)
	}
	metrics.UpdateWorkerCount(s.workerCount)
	return s
}

// retryableRead keeps missing rows and cancellation out of the retry loop.
func retryableRead(err error) bool {
	return !errors.Is(err, repository.ErrNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Running reports whether a batch run for year is in progress.
func (s *Service) Running(year int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[year]
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context, year int) map[string]any {
	s.mu.Lock()
	running := make([]int, 0, len(s.running))
	for y := range s.running {
		running = append(running, y)
	}
	queued := 0
	for _, a := range s.active {
		queued += a.queue.Len(ctx)
	}
	last := s.lastRun
	s.mu.Unlock()

	stats := map[string]any{
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"runningYears": running,
		"queuedJobs":   queued,
		"year":         year,
	}
	if last != nil {
		stats["lastRun"] = *last
	}
	if n, err := s.store.Count(ctx, year); err == nil {
		stats["ratedTeams"] = n
	} else {
		s.logger.Warn(ctx, "count season ratings", logger.Int("year", year), logger.Error(err))
	}
	return stats
}
