// Package cache holds computed coaching snapshots for a bounded time.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/metrics"
)

// TTL is a mutex-guarded snapshot cache. Entries expire lazily on read; there is
// no background sweeper. With a max size the oldest insertion is evicted first.
type TTL struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is oldest
	maxEntries int
}

type entry struct {
	key      string
	snapshot model.CoachingSnapshot
}

// New creates an empty cache.
func New(opts ...Option) *TTL {
	c := &TTL{
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the snapshot stored under key if it is at most maxAge old
// at now. A stale entry is removed.
func (c *TTL) Get(key string, now time.Time, maxAge time.Duration) (model.CoachingSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return model.CoachingSnapshot{}, false
	}
	e := el.Value.(*entry)
	if now.Sub(e.snapshot.ComputedAt) > maxAge {
		c.remove(el)
		metrics.RecordCacheEviction()
		return model.CoachingSnapshot{}, false
	}
	return e.snapshot.Clone(), true
}

// Put stores a copy of snapshot under key, replacing any previous value.
func (c *TTL) Put(key string, snapshot model.CoachingSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	if c.maxEntries > 0 {
		for c.order.Len() >= c.maxEntries {
			c.remove(c.order.Front())
			metrics.RecordCacheEviction()
		}
	}
	c.entries[key] = c.order.PushBack(&entry{key: key, snapshot: snapshot.Clone()})
	metrics.UpdateCacheSize(c.order.Len())
}

// Size returns the number of entries, stale ones included.
func (c *TTL) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry.
func (c *TTL) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	metrics.UpdateCacheSize(0)
}

// must be called with c.mu held.
func (c *TTL) remove(el *list.Element) {
	delete(c.entries, el.Value.(*entry).key)
	c.order.Remove(el)
	metrics.UpdateCacheSize(c.order.Len())
}
