package worker_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/ace/internal/adapters/mq/queue"
	"github.com/okian/ace/internal/adapters/mq/worker"
	"github.com/okian/ace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type collector struct {
	mu      sync.Mutex
	results []worker.Result
}

func (c *collector) add(r worker.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) teams() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.results))
	for _, r := range c.results {
		out = append(out, r.Job.Team)
	}
	sort.Ints(out)
	return out
}

func (c *collector) byTeam(team int) worker.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.results {
		if r.Job.Team == team {
			return r
		}
	}
	return worker.Result{}
}

func TestPool(t *testing.T) {
	Convey("Given a queue and a pool", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		got := &collector{}

		boom := errors.New("boom")
		proc := worker.ProcessorFunc(func(_ context.Context, j queue.Job) (worker.Outcome, error) {
			switch j.Team {
			case 2:
				return "", boom
			case 3:
				panic("bad data")
			case 4:
				return worker.OutcomeSkipped, nil
			}
			return worker.OutcomeUpdated, nil
		})
		pool := worker.NewPool(3, q, proc, got.add)

		Convey("When every job is drained", func() {
			for team := 1; team <= 5; team++ {
				So(q.Enqueue(ctx, queue.Job{RunID: "r", Team: team, Year: 2025}), ShouldBeNil)
			}
			So(q.Close(), ShouldBeNil)
			pool.Start(ctx)
			pool.Wait()

			Convey("Then each job reports one result", func() {
				So(got.teams(), ShouldResemble, []int{1, 2, 3, 4, 5})
				So(got.byTeam(1).Outcome, ShouldEqual, worker.OutcomeUpdated)
				So(got.byTeam(4).Outcome, ShouldEqual, worker.OutcomeSkipped)
			})

			Convey("Then errors fail only their job", func() {
				r := got.byTeam(2)
				So(r.Outcome, ShouldEqual, worker.OutcomeFailed)
				So(r.Err, ShouldEqual, boom)
			})

			Convey("Then a panic is recovered as a failure", func() {
				r := got.byTeam(3)
				So(r.Outcome, ShouldEqual, worker.OutcomeFailed)
				So(errors.Is(r.Err, worker.ErrPanic), ShouldBeTrue)
			})
		})

		Convey("When the pool is shut down", func() {
			pool.Start(ctx)
			So(q.Enqueue(ctx, queue.Job{Team: 1}), ShouldBeNil)
			So(pool.Shutdown(ctx), ShouldBeNil)

			Convey("Then the queue is closed", func() {
				So(q.Enqueue(ctx, queue.Job{Team: 2}), ShouldEqual, queue.ErrClosed)
			})
		})
	})
}

func TestWorker_StopsOnCancel(t *testing.T) {
	Convey("Given a worker with a slow processor", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		var calls atomic.Int32
		started := make(chan struct{}, 1)
		proc := worker.ProcessorFunc(func(ctx context.Context, _ queue.Job) (worker.Outcome, error) {
			calls.Add(1)
			started <- struct{}{}
			<-ctx.Done()
			return "", ctx.Err()
		})
		w := worker.NewInMemoryWorker(q, proc, worker.WithName("solo"))

		for team := 1; team <= 3; team++ {
			So(q.Enqueue(ctx, queue.Job{Team: team}), ShouldBeNil)
		}

		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()

		Convey("When the context is canceled mid-job", func() {
			<-started
			cancel()

			Convey("Then no further job is started", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					So("worker did not stop", ShouldBeEmpty)
				}
				So(int(calls.Load()), ShouldEqual, 1)
				So(q.Len(context.Background()), ShouldEqual, 2)
			})
		})
	})
}
