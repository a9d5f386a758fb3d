package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/polytrack/internal/adapters/mq/queue"
	"github.com/okian/polytrack/internal/adapters/mq/worker"
	logging "github.com/okian/polytrack/pkg/logger"
)

func newWriter(capacity int) *worker.Writer {
	q := queue.NewInMemoryQueue(queue.WithCapacity(capacity), queue.WithName("test"))
	return worker.NewWriter(q, worker.WithName("test-writer"))
}

func TestWriter(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	convey.Convey("Given a running writer", t, func() {
		w := newWriter(16)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs are submitted from many goroutines", func() {
			counter := 0
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = w.Do(ctx, func(context.Context) error {
						// Unsynchronized on purpose: the writer must serialize.
						v := counter
						time.Sleep(time.Microsecond)
						counter = v + 1
						return nil
					})
				}()
			}
			wg.Wait()

			convey.Convey("Then no update is lost", func() {
				convey.So(counter, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When a job fails", func() {
			boom := errors.New("boom")
			err := w.Do(ctx, func(context.Context) error { return boom })

			convey.Convey("Then its error is returned to the caller", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a job panics", func() {
			perr := w.Do(ctx, func(context.Context) error { panic("bad job") })
			err := w.Do(ctx, func(context.Context) error { return nil })

			convey.Convey("Then the panic is reported and the writer keeps serving", func() {
				convey.So(errors.Is(perr, worker.ErrJobPanicked), convey.ShouldBeTrue)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the writer is shut down", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			err := w.Do(context.Background(), func(context.Context) error { return nil })

			convey.Convey("Then later jobs are refused", func() {
				convey.So(errors.Is(err, worker.ErrStopped), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a writer whose caller gave up before the job ran", t, func() {
		w := newWriter(4)
		callerCtx, cancelCaller := context.WithCancel(context.Background())
		ran := make(chan struct{}, 1)
		errCh := make(chan error, 1)
		go func() {
			errCh <- w.Do(callerCtx, func(context.Context) error {
				ran <- struct{}{}
				return nil
			})
		}()
		time.Sleep(10 * time.Millisecond)
		cancelCaller()

		convey.Convey("Then the caller sees its context error and the job is skipped", func() {
			convey.So(errors.Is(<-errCh, context.Canceled), convey.ShouldBeTrue)

			runCtx, stop := context.WithCancel(context.Background())
			defer stop()
			go w.Run(runCtx)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(len(ran), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a job that is already running when its caller gives up", t, func() {
		w := newWriter(4)
		runCtx, stop := context.WithCancel(context.Background())
		defer stop()
		go w.Run(runCtx)

		callerCtx, cancelCaller := context.WithCancel(context.Background())
		started := make(chan struct{})
		release := make(chan struct{})
		committed := make(chan struct{}, 1)
		errCh := make(chan error, 1)
		go func() {
			errCh <- w.Do(callerCtx, func(context.Context) error {
				close(started)
				<-release
				committed <- struct{}{}
				return nil
			})
		}()
		<-started
		cancelCaller()

		convey.Convey("Then Do waits for the job and returns its real result", func() {
			select {
			case err := <-errCh:
				t.Fatalf("Do returned %v before the job finished", err)
			case <-time.After(20 * time.Millisecond):
			}
			close(release)
			convey.So(<-errCh, convey.ShouldBeNil)
			convey.So(len(committed), convey.ShouldEqual, 1)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a writer with queued jobs", t, func() {
		w := newWriter(8)
		ctx := context.Background()
		var mu sync.Mutex
		var order []int
		errs := make(chan error, 3)
		for i := 1; i <= 3; i++ {
			i := i
			go func() {
				errs <- w.Do(ctx, func(context.Context) error {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					return nil
				})
			}()
			time.Sleep(5 * time.Millisecond)
		}

		convey.Convey("When it starts and then shuts down", func() {
			go w.Run(ctx)
			for i := 0; i < 3; i++ {
				convey.So(<-errs, convey.ShouldBeNil)
			}
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then jobs ran in submission order", func() {
				convey.So(order, convey.ShouldResemble, []int{1, 2, 3})
			})
		})
	})
}
