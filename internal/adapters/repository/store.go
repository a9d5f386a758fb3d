// Package repository persists the service's JSON documents.
//
// A Backend stores opaque document bodies by name. Store layers JSON decoding
// and one single-writer queue per document on top, so every read-modify-write
// cycle on a document runs to completion before the next one starts.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/polytrack/internal/adapters/mq/queue"
	"github.com/okian/polytrack/internal/adapters/mq/worker"
	"github.com/okian/polytrack/pkg/logger"
	"github.com/okian/polytrack/pkg/metrics"
)

// Persisted document names.
const (
	DocResults   = "results"
	DocTracks    = "tracks"
	DocLockState = "lock-state"
)

const defaultQueueSize = 1024

// Backend stores whole documents by name.
type Backend interface {
	// Get returns the stored body, or ErrNotFound if name was never written.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put replaces the body of name atomically: readers see either the old
	// or the new content, never a mix.
	Put(ctx context.Context, name string, data []byte) error

	Close() error
}

// Document is implemented by the persisted document types.
type Document interface {
	// Normalize fills in empty defaults, e.g. nil slices.
	Normalize()
	// Len reports the record count, for metrics.
	Len() int
}

// documentPtr constrains P to be *T implementing Document.
type documentPtr[T any] interface {
	*T
	Document
}

// Store wraps a Backend with per-document writers.
type Store struct {
	backend   Backend
	queueSize int
	logger    logger.Logger

	mu      sync.Mutex
	writers map[string]*worker.Writer
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore creates a store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:   backend,
		queueSize: defaultQueueSize,
		writers:   make(map[string]*worker.Writer),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// writer returns the writer for name, starting it on first use.
func (s *Store) writer(name string) (*worker.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if w, ok := s.writers[name]; ok {
		return w, nil
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize), queue.WithName(name))
	w := worker.NewWriter(q, worker.WithName(name), worker.WithLogger(s.logger.Named(name)))
	s.writers[name] = w
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		w.Run(s.ctx)
	}()
	return w, nil
}

// Close drains every writer and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	writers := make([]*worker.Writer, 0, len(s.writers))
	for _, w := range s.writers {
		writers = append(writers, w)
	}
	s.mu.Unlock()

	var errs []error
	for _, w := range writers {
		if err := w.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.cancel()
	s.wg.Wait()

	if err := s.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}

// read fetches and decodes name into doc. Missing documents leave doc as is.
// A corrupt body is reported and doc is reset to its zero value.
func read[T any, P documentPtr[T]](ctx context.Context, s *Store, name string) T {
	var doc T
	data, err := s.backend.Get(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		s.logger.Warn(ctx, "document read failed, using empty default",
			logger.String("document", name), logger.Error(err))
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &doc); err != nil {
			metrics.RecordStoreCorruptRead(name)
			s.logger.Warn(ctx, "document is corrupt, using empty default",
				logger.String("document", name), logger.Error(err))
			var zero T
			doc = zero
		}
	}
	P(&doc).Normalize()
	return doc
}

// Load returns a snapshot of document name. It never fails: a missing,
// unreadable or corrupt document yields its normalized empty default.
func Load[T any, P documentPtr[T]](ctx context.Context, s *Store, name string) T {
	return read[T, P](ctx, s, name)
}

// Update runs read, mutate, write for name as one job on the document's
// writer. If mutate returns an error nothing is written and that error is
// returned. Persist failures are wrapped in ErrWrite.
func Update[T any, P documentPtr[T]](ctx context.Context, s *Store, name string, mutate func(doc *T) error) error {
	w, err := s.writer(name)
	if err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}

	err = w.Do(ctx, func(runCtx context.Context) error {
		start := time.Now()
		defer func() {
			metrics.RecordStoreWriteLatency(name, float64(time.Since(start).Microseconds())/1000)
		}()

		doc := read[T, P](runCtx, s, name)
		if err := mutate(&doc); err != nil {
			return err
		}
		P(&doc).Normalize()

		data, err := json.MarshalIndent(&doc, "", "  ")
		if err != nil {
			metrics.RecordStoreWriteError(name)
			return fmt.Errorf("%w: encode %s: %w", ErrWrite, name, err)
		}
		if err := s.backend.Put(runCtx, name, data); err != nil {
			metrics.RecordStoreWriteError(name)
			s.logger.Error(runCtx, "document write failed",
				logger.String("document", name), logger.Error(err))
			return fmt.Errorf("%w: %s: %w", ErrWrite, name, err)
		}
		metrics.UpdateDocumentRecords(name, P(&doc).Len())
		return nil
	})
	if errors.Is(err, worker.ErrStopped) {
		return fmt.Errorf("update %s: %w", name, ErrClosed)
	}
	return err
}
