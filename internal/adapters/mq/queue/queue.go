// Package queue provides the bounded job queue that feeds a document writer.
//
// Enqueue blocks while the queue is full, so producers feel backpressure
// instead of losing work. Close stops intake without closing the job channel;
// consumers watch Done and drain what is left.
package queue

import (
	"context"
	"fmt"

	"github.com/okian/polytrack/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultName          = "queue"
)

// Job is a unit of work run by the consumer. ctx is the consumer's context.
type Job func(ctx context.Context)

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job, waiting for room until ctx ends or the queue closes.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns the channel jobs arrive on. It is never closed; watch Done.
	Dequeue() <-chan Job

	// Done is closed once Close has been called.
	Done() <-chan struct{}

	// Len returns the current number of queued jobs.
	Len() int

	// Close stops accepting jobs. Calling it twice is a no-op.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	name     string
	capacity int
	jobs     chan Job
	done     chan struct{}
	closing  chan struct{}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		name:     defaultName,
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	q.done = make(chan struct{})
	q.closing = make(chan struct{}, 1)
	q.closing <- struct{}{}

	metrics.UpdateWriterQueueDepth(q.name, 0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	if j == nil {
		return fmt.Errorf("%s: %w", q.name, ErrNilJob)
	}
	select {
	case <-q.done:
		return fmt.Errorf("%s: %w", q.name, ErrClosed)
	default:
	}

	select {
	case q.jobs <- j:
		metrics.UpdateWriterQueueDepth(q.name, len(q.jobs))
		return nil
	case <-q.done:
		return fmt.Errorf("%s: %w", q.name, ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("%s: enqueue: %w", q.name, ctx.Err())
	}
}

// Dequeue returns the job channel.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Done is closed when the queue stops accepting jobs.
func (q *InMemoryQueue) Done() <-chan struct{} {
	return q.done
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	n := len(q.jobs)
	metrics.UpdateWriterQueueDepth(q.name, n)
	return n
}

// Close stops accepting jobs.
func (q *InMemoryQueue) Close() error {
	select {
	case <-q.closing:
		close(q.done)
	default:
	}
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Name returns the queue name used in metrics.
func (q *InMemoryQueue) Name() string {
	return q.name
}
