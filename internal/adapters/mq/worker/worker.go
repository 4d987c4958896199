// Package worker runs team recalculation jobs from a queue on a fixed pool
// of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/okian/ace/internal/adapters/mq/queue"
	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 10
	poolShutdownTimeout = 30 * time.Second
)

// Outcome classifies a processed job.
type Outcome string

const (
	OutcomeUpdated Outcome = metrics.OutcomeUpdated
	OutcomeSkipped Outcome = metrics.OutcomeSkipped
	OutcomeFailed  Outcome = metrics.OutcomeFailed
)

// Processor recalculates one team-season.
type Processor interface {
	Process(ctx context.Context, job queue.Job) (Outcome, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job queue.Job) (Outcome, error)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, job queue.Job) (Outcome, error) {
	return f(ctx, job)
}

// Result is reported for every job a worker picked up.
type Result struct {
	Job     queue.Job
	Outcome Outcome
	Err     error
	Took    time.Duration
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until the queue drains or ctx ends.
type Worker interface {
	// Run starts the worker loop. It returns when the job channel is closed
	// and empty, or when ctx is canceled.
	Run(ctx context.Context)
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	results   func(Result)
	name      string
	logger    logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run implements Worker. Once ctx is canceled no further job is started.
func (w *InMemoryWorker) Run(ctx context.Context) {
	jobs := w.queue.Dequeue(ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.report(w.process(ctx, job))
		}
	}
}

// process runs one job. A panic fails only this job.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) (res Result) {
	start := time.Now()
	res.Job = job
	metrics.AddWorkersBusy(1)

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			w.logger.Error(ctx, "team job panicked",
				logger.Int("team", job.Team),
				logger.Int("year", job.Year),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
		}
		res.Took = time.Since(start)
		metrics.AddWorkersBusy(-1)
		metrics.RecordTeamOutcome(string(res.Outcome))
		metrics.RecordTeamComputeLatency(float64(res.Took.Microseconds()) / 1000)
	}()

	outcome, err := w.processor.Process(ctx, job)
	if err != nil {
		outcome = OutcomeFailed
		w.logger.Error(ctx, "team job failed",
			logger.Int("team", job.Team),
			logger.Int("year", job.Year),
			logger.String("run_id", job.RunID),
			logger.Error(err),
		)
	}
	res.Outcome, res.Err = outcome, err
	return res
}

func (w *InMemoryWorker) report(r Result) {
	if w.results != nil {
		w.results(r)
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. results, when not nil, is
// called from the worker goroutines for every processed job.
func NewPool(workerCount int, q Queue, p Processor, results func(Result), opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := range pool.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i)), WithResults(results)}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, p, wopts...)
	}
	pool.logger = pool.workers[0].logger.Named("pool")
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue, stops workers from taking new jobs and waits
// for in-flight jobs, up to ctx or an internal timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}
}
