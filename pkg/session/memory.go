package session

import (
	"context"
	"sync"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

// MemoryStore keeps cases in memory. Intended for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*workflow.Case
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]*workflow.Case)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, caseID string) (*workflow.Case, error) {
	s.mu.RLock()
	c, ok := s.cases[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone()
}

// Save implements Store. The case is cloned on the way in so later caller
// mutations cannot leak into the stored copy.
func (s *MemoryStore) Save(_ context.Context, c *workflow.Case) error {
	if c == nil || c.ID == "" {
		return ErrNotFound
	}
	stored, err := c.Clone()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cases[c.ID] = stored
	s.mu.Unlock()
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.cases))
	for id := range s.cases {
		out = append(out, id)
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, caseID string) error {
	s.mu.Lock()
	delete(s.cases, caseID)
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
