package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ace/internal/adapters/mq/queue"
	"github.com/okian/ace/internal/adapters/mq/worker"
	"github.com/okian/ace/internal/domain/dedupe"
	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/metrics"
)

// BatchResult summarises one season recalculation.
type BatchResult struct {
	RunID     string        `json:"run_id"`
	Year      int           `json:"year"`
	Teams     int           `json:"teams"`
	Events    int           `json:"events"`
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

func (b *BatchResult) add(r worker.Result) {
	b.Processed++
	switch r.Outcome {
	case worker.OutcomeUpdated:
		b.Updated++
	case worker.OutcomeSkipped:
		b.Skipped++
	default:
		b.Failed++
	}
}

// RecalculateSeason recomputes every team of year on the worker pool.
// A failing team is logged and counted; it never aborts the run. Once ctx
// ends no further team is started and the partial result is returned with
// ctx's error.
func (s *Service) RecalculateSeason(ctx context.Context, year int) (BatchResult, error) {
	if err := s.begin(year); err != nil {
		return BatchResult{}, err
	}
	defer s.end(year)
	return s.recalculateSeason(ctx, year)
}

// StartSeason runs RecalculateSeason in the background under ctx. It fails
// fast with ErrRunInProgress; the outcome is logged and kept as the last run.
// Shutdown waits for the run.
func (s *Service) StartSeason(ctx context.Context, year int) error {
	if err := s.begin(year); err != nil {
		return err
	}
	go func() {
		defer s.end(year)
		if _, err := s.recalculateSeason(ctx, year); err != nil {
			s.logger.Error(ctx, "background season recalculation failed", logger.Int("year", year), logger.Error(err))
		}
	}()
	return nil
}

// Shutdown rejects new runs, stops the worker pools of running ones and
// waits for them to return, bounded by ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pools := make([]*worker.Pool, 0, len(s.active))
	for _, a := range s.active {
		pools = append(pools, a.pool)
	}
	s.mu.Unlock()

	var errs []error
	for _, p := range pools {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("wait for running recalculations: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}

func (s *Service) recalculateSeason(ctx context.Context, year int) (BatchResult, error) {
	start := time.Now()
	r := s.newRun(year)
	res := BatchResult{RunID: r.id, Year: year}
	log := s.logger.With(logger.String("run_id", r.id), logger.Int("year", year))

	teams, err := s.src.TeamsForYear(ctx, year)
	if err != nil {
		return res, fmt.Errorf("list teams of %d: %w", year, err)
	}
	log.Info(ctx, "season recalculation started", logger.Int("teams", len(teams)))

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	seen := dedupe.NewInMemoryDeduper()

	var mu sync.Mutex
	collect := func(wr worker.Result) {
		mu.Lock()
		res.add(wr)
		mu.Unlock()
	}
	pool := worker.NewPool(s.workerCount, q, worker.ProcessorFunc(func(ctx context.Context, j queue.Job) (worker.Outcome, error) {
		return s.processTeam(ctx, r, j)
	}), collect, worker.WithLogger(s.logger.Named("worker")))
	pool.Start(ctx)
	if !s.track(year, activeRun{pool: pool, queue: q}) {
		_ = pool.Shutdown(context.WithoutCancel(ctx))
	}
	defer s.untrack(year)

	stopped := false
	for _, team := range teams {
		if seen.SeenAndRecord(ctx, team, year) {
			continue
		}
		if err := q.Enqueue(ctx, queue.Job{RunID: r.id, Team: team, Year: year}); err != nil {
			seen.Unrecord(ctx, team, year)
			stopped = true
			break
		}
		res.Teams++
	}
	_ = q.Close()
	pool.Wait()
	res.Events = r.matches.Len()

	res.Duration = time.Since(start)
	metrics.RecordBatchRun(year, float64(res.Duration.Milliseconds()), time.Now().Unix())

	s.mu.Lock()
	last := res
	s.lastRun = &last
	s.mu.Unlock()

	fields := []logger.Field{
		logger.Int("events", res.Events),
		logger.Int("processed", res.Processed),
		logger.Int("updated", res.Updated),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed),
		logger.Duration("took", res.Duration),
	}
	if err := ctx.Err(); err != nil {
		log.Warn(ctx, "season recalculation canceled", fields...)
		return res, err
	}
	if (stopped || res.Processed < res.Teams) && s.stopping() {
		log.Warn(ctx, "season recalculation stopped by shutdown", fields...)
		return res, ErrShuttingDown
	}
	log.Info(ctx, "season recalculation finished", fields...)
	return res, nil
}

// processTeam is the worker body of a run.
func (s *Service) processTeam(ctx context.Context, r *run, j queue.Job) (worker.Outcome, error) {
	season, err := s.computeTeam(ctx, r, j.Team, j.Year)
	if err != nil {
		return worker.OutcomeFailed, err
	}
	if !played(season.Events) {
		if err := s.clear(ctx, j.Team, j.Year); err != nil {
			return worker.OutcomeFailed, err
		}
		return worker.OutcomeSkipped, nil
	}
	if err := s.persist(ctx, season); err != nil {
		return worker.OutcomeFailed, err
	}
	return worker.OutcomeUpdated, nil
}

// activeRun is the worker pool and queue of a running season.
type activeRun struct {
	pool  *worker.Pool
	queue *queue.InMemoryQueue
}

// begin claims year for a run and counts it for Shutdown.
func (s *Service) begin(year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShuttingDown
	}
	if s.running[year] {
		return fmt.Errorf("season %d: %w", year, ErrRunInProgress)
	}
	s.running[year] = true
	s.runs.Add(1)
	return nil
}

func (s *Service) end(year int) {
	s.mu.Lock()
	delete(s.running, year)
	s.mu.Unlock()
	s.runs.Done()
}

// track registers the pool of a running season. It returns false once
// Shutdown has started; the caller stops the pool itself.
func (s *Service) track(year int, a activeRun) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[year] = a
	return !s.closed
}

func (s *Service) untrack(year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, year)
}

func (s *Service) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
