package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func noop(context.Context) {}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithName("basic"))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	ran := false
	if err := q.Enqueue(ctx, func(context.Context) { ran = true }); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue()
	j(ctx)
	if !ran {
		t.Error("expected dequeued job to be the enqueued one")
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Name() != "basic" {
		t.Errorf("expected name basic, got %s", q.Name())
	}
}

func TestInMemoryQueue_Backpressure(t *testing.T) {
	Convey("Given a full queue", t, func() {
		q := NewInMemoryQueue(WithCapacity(1))
		So(q.Enqueue(context.Background(), noop), ShouldBeNil)

		Convey("When the producer's context expires while waiting", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := q.Enqueue(ctx, noop)

			Convey("Then the enqueue fails with the context error", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a consumer frees a slot", func() {
			errCh := make(chan error, 1)
			go func() { errCh <- q.Enqueue(context.Background(), noop) }()
			time.Sleep(10 * time.Millisecond)
			<-q.Dequeue()

			Convey("Then the blocked producer proceeds", func() {
				So(<-errCh, ShouldBeNil)
				So(q.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the queue closes under a blocked producer", func() {
			errCh := make(chan error, 1)
			go func() { errCh <- q.Enqueue(context.Background(), noop) }()
			time.Sleep(10 * time.Millisecond)
			So(q.Close(), ShouldBeNil)

			Convey("Then the producer is released with ErrClosed", func() {
				So(errors.Is(<-errCh, ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryQueue_Close(t *testing.T) {
	Convey("Given an open queue", t, func() {
		q := NewInMemoryQueue()
		So(q.IsClosed(), ShouldBeFalse)

		Convey("When it is closed twice", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then Done is closed and enqueue is refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				_, open := <-q.Done()
				So(open, ShouldBeFalse)
				So(errors.Is(q.Enqueue(context.Background(), noop), ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When a nil job is enqueued", func() {
			So(errors.Is(q.Enqueue(context.Background(), nil), ErrNilJob), ShouldBeTrue)
		})
	})
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8))
	ctx := context.Background()
	const producers, perProducer = 10, 50

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	go func() {
		for n := 0; n < producers*perProducer; n++ {
			(<-q.Dequeue())(ctx)
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Enqueue(ctx, func(context.Context) {
					mu.Lock()
					count++
					mu.Unlock()
				}); err != nil {
					t.Errorf("enqueue failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	if count != producers*perProducer {
		t.Errorf("expected %d jobs, ran %d", producers*perProducer, count)
	}
}
