package history

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used in tests and as a fallback when
// no Redis is configured. Records are copied on Load/Save so callers never
// share map instances with the store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]record)}
}

func (s *MemoryStore) Load(ctx context.Context, queue, userID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[stateKey(queue, userID)]
	if !ok {
		return NewState(), nil
	}
	return fromRecord(r), nil
}

func (s *MemoryStore) Save(ctx context.Context, queue, userID string, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[stateKey(queue, userID)] = toRecord(st)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, queue, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, stateKey(queue, userID))
	return nil
}
