package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/ace/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue of capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When jobs are enqueued and dequeued", func() {
			So(q.Enqueue(ctx, queue.Job{Team: 254, Year: 2025}), ShouldBeNil)
			So(q.Len(ctx), ShouldEqual, 1)

			j := <-q.Dequeue(ctx)
			So(j.Team, ShouldEqual, 254)
			So(q.Len(ctx), ShouldEqual, 0)
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, queue.Job{Team: 1}), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{Team: 2}), ShouldBeNil)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then Enqueue waits for room", func() {
				errc := make(chan error, 1)
				go func() { errc <- q.Enqueue(ctx, queue.Job{Team: 3}) }()

				time.Sleep(20 * time.Millisecond)
				<-q.Dequeue(ctx)
				So(<-errc, ShouldBeNil)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("Then Enqueue gives up when the context ends", func() {
				cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
				defer cancel()
				So(errors.Is(q.Enqueue(cctx, queue.Job{Team: 3}), context.DeadlineExceeded), ShouldBeTrue)
			})

			Convey("Then Close releases a blocked Enqueue", func() {
				errc := make(chan error, 1)
				go func() { errc <- q.Enqueue(ctx, queue.Job{Team: 3}) }()

				time.Sleep(20 * time.Millisecond)
				So(q.Close(), ShouldBeNil)
				So(<-errc, ShouldEqual, queue.ErrClosed)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Job{Team: 1}), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then queued jobs still drain and the channel closes", func() {
				So(q.Enqueue(ctx, queue.Job{Team: 2}), ShouldEqual, queue.ErrClosed)

				var got []int
				for j := range q.Dequeue(ctx) {
					got = append(got, j.Team)
				}
				So(got, ShouldResemble, []int{1})
			})
		})

		Convey("When producers race with Close", func() {
			big := queue.NewInMemoryQueue(queue.WithCapacity(1000))
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(team int) {
					defer wg.Done()
					_ = big.Enqueue(ctx, queue.Job{Team: team})
				}(i)
			}
			So(big.Close(), ShouldBeNil)
			wg.Wait()
			So(big.Enqueue(ctx, queue.Job{Team: 99}), ShouldEqual, queue.ErrClosed)
		})
	})
}
