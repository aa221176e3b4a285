package service

import (
	"sync"

	"dashboard_sync/internal/models"
)

// StateStore holds the in-memory cursor of every instance. It is seeded once
// from the database at start and injected into the poll and GC services.
type StateStore struct {
	mu      sync.RWMutex
	cursors map[int64]models.InstanceCursor
}

func NewStateStore() *StateStore {
	return &StateStore{cursors: map[int64]models.InstanceCursor{}}
}

// Seed replaces the state with persisted cursors.
func (s *StateStore) Seed(cursors []models.InstanceCursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = make(map[int64]models.InstanceCursor, len(cursors))
	for _, c := range cursors {
		s.cursors[c.InstanceID] = c
	}
}

// Get returns the cursor of id, zero-valued (Unpolled) when unknown.
func (s *StateStore) Get(id int64) models.InstanceCursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cursors[id]
	if !ok {
		return models.InstanceCursor{InstanceID: id}
	}
	return c
}

// Set stores c under c.InstanceID.
func (s *StateStore) Set(c models.InstanceCursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[c.InstanceID] = c
}
