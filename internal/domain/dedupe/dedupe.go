// Package dedupe remembers persisted submission ids so a retried race result
// can be recognised without scanning the whole result log.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper remembers submission keys that have been persisted.
type Deduper interface {
	// Seen reports whether key has been recorded and not yet evicted.
	Seen(ctx context.Context, key string) bool

	// Record remembers key. Callers record only after the submission is
	// durably stored. Recording a known key is a no-op.
	Record(ctx context.Context, key string)

	Size() int64
}

// Key scopes a client submission id to the player that sent it.
func Key(userID, submissionID string) string {
	return userID + "\x00" + submissionID
}

// inMemoryDeduper keeps ids in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Seen(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok
}

func (d *inMemoryDeduper) Record(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
}

// Size returns the number of ids currently remembered.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
