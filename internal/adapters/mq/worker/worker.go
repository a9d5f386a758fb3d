// Package worker runs queued jobs one at a time.
//
// A Writer owns a single goroutine that drains its queue in order, so every
// job it runs sees the effects of the jobs before it. The repository gives
// each persisted document its own Writer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/polytrack/internal/adapters/mq/queue"
	"github.com/okian/polytrack/pkg/logger"
	"github.com/okian/polytrack/pkg/metrics"
)

// Default writer configuration constants.
const (
	defaultName           = "writer"
	writerShutdownTimeout = 5 * time.Second
)

// Queue defines how a writer receives jobs.
type Queue interface {
	Enqueue(ctx context.Context, j queue.Job) error
	Dequeue() <-chan queue.Job
	Done() <-chan struct{}
	Len() int
	Close() error
}

// Worker processes queued jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown closes the queue and waits for pending jobs to finish.
	Shutdown(ctx context.Context) error
}

// Writer is a serial executor over a Queue.
type Writer struct {
	queue   Queue
	name    string
	started chan struct{}
	done    chan struct{}
	logger  logger.Logger
}

// NewWriter creates a writer consuming q.
func NewWriter(q Queue, opts ...Option) *Writer {
	w := &Writer{
		queue:   q,
		name:    defaultName,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Name returns the writer name.
func (w *Writer) Name() string { return w.name }

// Run drains the queue until ctx ends or the queue is closed and empty.
func (w *Writer) Run(ctx context.Context) {
	close(w.started)
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-jobs:
			w.run(ctx, j)
		case <-w.queue.Done():
			for {
				select {
				case j := <-jobs:
					w.run(ctx, j)
				default:
					return
				}
			}
		}
	}
}

// run executes one job, keeping the loop alive if it panics.
func (w *Writer) run(ctx context.Context, j queue.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "job panicked", logger.Any("panic", r))
		}
		metrics.UpdateWriterQueueDepth(w.name, w.queue.Len())
	}()
	j(ctx)
}

// Job states used by Do to settle the race between the caller giving up and
// the writer picking the job up.
const (
	jobPending int32 = iota
	jobRunning
	jobAbandoned
)

// Do runs fn on the writer goroutine and returns its error. A job whose
// caller has gone away before it starts is skipped and the caller gets its
// context error. Once fn has started, Do waits for its real result even if
// the caller's ctx ends, so the caller never reports failure for work that
// was committed.
func (w *Writer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var state atomic.Int32
	result := make(chan error, 1)
	job := func(runCtx context.Context) {
		if !state.CompareAndSwap(jobPending, jobRunning) {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error(runCtx, "job panicked", logger.Any("panic", r))
				result <- fmt.Errorf("%s: %w: %v", w.name, ErrJobPanicked, r)
			}
		}()
		result <- fn(runCtx)
	}

	if err := w.queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%s: %w", w.name, ErrStopped)
		}
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		if state.CompareAndSwap(jobPending, jobAbandoned) {
			return fmt.Errorf("%s: %w", w.name, ctx.Err())
		}
		return <-result
	case <-w.done:
		if state.CompareAndSwap(jobPending, jobAbandoned) {
			return fmt.Errorf("%s: %w", w.name, ErrStopped)
		}
		return <-result
	}
}

// Shutdown closes the queue and waits for pending jobs to finish.
	Shutdown(ctx context.Context) error
}

// Writer is a serial executor over a Queue.
type Writer struct {
	queue   Queue
	name    string
	started chan struct{}
	done    chan struct{}
	logger  logger.Logger
}

// NewWriter creates a writer consuming q.
func NewWriter(q Queue, opts ...Option) *Writer {
	w := &Writer{
		queue:   q,
		name:    defaultName,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Name returns the writer name.
func (w *Writer) Name() string { return w.name }

// Run drains the queue until ctx ends or the queue is closed and empty.
func (w *Writer) Run(ctx context.Context) {
	close(w.started)
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-jobs:
			w.run(ctx, j)
		case <-w.queue.Done():
			for {
				select {
				case j := <-jobs:
					w.run(ctx, j)
				default:
					return
				}
			}
		}
	}
}

// run executes one job, keeping the loop alive if it panics.
func (w *Writer) run(ctx context.Context, j queue.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "job panicked", logger.Any("panic", r))
		}
		metrics.UpdateWriterQueueDepth(w.name, w.queue.Len())
	}()
	j(ctx)
}

// Do runs fn on the writer goroutine and returns its error. It blocks until
// fn has run, the caller's ctx ends, or the writer stops. A job whose caller
// has already gone away is skipped.
func (w *Writer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	job := func(runCtx context.Context) {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error(runCtx, "job panicked", logger.Any("panic", r))
				result <- fmt.Errorf("%s: %w: %v", w.name, ErrJobPanicked, r)
			}
		}()
		result <- fn(runCtx)
	}

	if err := w.queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%s: %w", w.name, ErrStopped)
		}
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", w.name, ctx.Err())
	case <-w.done:
		select {
		case err := <-result:
			return err
		default:
			return fmt.Errorf("%s: %w", w.name, ErrStopped)
		}
	}
}

// Shutdown closes the queue and waits for queued jobs to drain.
func (w *Writer) Shutdown(ctx context.Context) error {
	if err := w.queue.Close(); err != nil {
		w.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	select {
	case <-w.started:
	default:
		// Never ran; nothing to wait for.
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, writerShutdownTimeout)
	defer cancel()

	select {
	case <-w.done:
		return nil
	case <-shutdownCtx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.Int("pending", w.queue.Len()))
		return fmt.Errorf("%s: shutdown timed out: %w", w.name, shutdownCtx.Err())
	}
}
