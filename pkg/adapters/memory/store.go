// Package memory provides an in-memory Checkpointer.
// It has no durability across restarts and is intended for tests and demos.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.Checkpointer in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.State
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.State),
	}
}

// Save persists the state in memory.
func (s *Store) Save(ctx context.Context, state *domain.State) error {
	// Clone to ensure isolation, similar to serialization.
	snapshot := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state.ExecutionID] = snapshot
	return nil
}

// Load retrieves the state from memory.
func (s *Store) Load(ctx context.Context, executionID string) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[executionID]
	if !ok {
		return nil, domain.ErrCheckpointNotFound
	}

	// Copy on read so the caller can't mutate store state by pointer.
	return state.Clone(), nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, executionID)
	return nil
}

// List returns known execution IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
