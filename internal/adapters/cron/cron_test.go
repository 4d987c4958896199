package cron_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/ace/internal/adapters/cron"
	"github.com/okian/ace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a counting task", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		var runs atomic.Int32
		task := func(context.Context) error {
			runs.Add(1)
			return nil
		}

		Convey("When the interval is zero", func() {
			s := cron.New(0, task)

			Convey("Then starting schedules nothing", func() {
				So(s.Enabled(), ShouldBeFalse)
				So(s.Start(ctx), ShouldBeNil)
				So(s.Shutdown(), ShouldBeNil)
				So(int(runs.Load()), ShouldEqual, 0)
			})
		})

		Convey("When started immediately with a long interval", func() {
			s := cron.New(time.Hour, task, cron.WithName("test"), cron.WithStartImmediately())
			So(s.Start(ctx), ShouldBeNil)
			So(s.Start(ctx), ShouldBeNil)

			Convey("Then the task runs once right away", func() {
				deadline := time.Now().Add(2 * time.Second)
				for runs.Load() == 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(s.Shutdown(), ShouldBeNil)
				So(int(runs.Load()), ShouldEqual, 1)
			})
		})

		Convey("When the task fails", func() {
			failed := make(chan struct{}, 1)
			s := cron.New(time.Hour, func(context.Context) error {
				failed <- struct{}{}
				return errors.New("boom")
			}, cron.WithStartImmediately())
			So(s.Start(ctx), ShouldBeNil)

			Convey("Then the scheduler keeps running and stops cleanly", func() {
				select {
				case <-failed:
				case <-time.After(2 * time.Second):
					So("task never ran", ShouldBeEmpty)
				}
				So(s.Shutdown(), ShouldBeNil)
				So(s.Shutdown(), ShouldBeNil)
			})
		})
	})
}
