// Package pending tracks shots whose snapshot refresh is queued or running, so a
// shot is never enqueued twice.
package pending

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/shotcoach/pkg/metrics"
)

// Tracker records shots with an in-flight refresh.
type Tracker interface {
	// SeenAndRecord atomically checks whether shotID is pending and records it if
	// not. Returns true if it was already pending.
	SeenAndRecord(ctx context.Context, shotID string) bool

	// Unrecord clears shotID once its refresh finished or could not be enqueued.
	Unrecord(ctx context.Context, shotID string)

	Size() int64
}

// inMemoryTracker is a Tracker with an optional bound. When full, the oldest
// pending shot is forgotten so a stuck refresh cannot block new ones forever.
type inMemoryTracker struct {
	mu      sync.Mutex
	pending map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int        // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		pending: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 10_000,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, shotID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[shotID]; ok {
		return true
	}
	if t.maxSize > 0 && len(t.pending) >= t.maxSize {
		t.remove(t.order.Front())
	}
	t.pending[shotID] = t.order.PushBack(shotID)
	t.size.Add(1)
	metrics.UpdatePendingRefreshes(t.size.Load())
	return false
}

func (t *inMemoryTracker) Unrecord(_ context.Context, shotID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.pending[shotID]; ok {
		t.remove(el)
		metrics.UpdatePendingRefreshes(t.size.Load())
	}
}

// must be called with t.mu held.
func (t *inMemoryTracker) remove(el *list.Element) {
	delete(t.pending, el.Value.(string))
	t.order.Remove(el)
	t.size.Add(-1)
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
