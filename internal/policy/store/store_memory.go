package store

import (
	"context"
	"sync"
	"time"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
)

// InMemoryStore keeps records in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*models.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return ErrDuplicateID
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// List returns copies of all records in no particular order.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// Delete is idempotent.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// PurgeExpired drops records whose retention ended at or before now.
func (s *InMemoryStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}
