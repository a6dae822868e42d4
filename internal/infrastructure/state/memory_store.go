package state

import (
	"context"
	"sync"

	"github.com/matchcal/matchcal/internal/domain/syncstate"
)

// MemoryStore is an in-process StateStore used by tests and dry-run tooling.
type MemoryStore struct {
	mu    sync.Mutex
	state syncstate.State
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (syncstate.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *MemoryStore) Save(_ context.Context, st syncstate.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
