package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/shotcoach/pkg/metrics"
)

// MemoryStore is a process-local Store used when no database path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{records: make(map[string]Record), now: o.now}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec Record) (Record, error) {
	if rec.ShotID == "" {
		return Record{}, ErrInvalidShot
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[rec.ShotID]; ok {
		rec.ID = old.ID
	} else if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.SavedAt = s.now().UTC()
	s.records[rec.ShotID] = rec
	metrics.UpdateSnapshotsStored(len(s.records))
	return rec, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, shotID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[shotID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShotID < out[j].ShotID })
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
