package store

import (
	"context"
	"encoding/json"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore builds an in-memory document store for tests. Documents are
// kept in encoded form so callers never share maps with the store.
func NewMemoryStore() Documents {
	return &memoryStore{docs: make(map[string][]byte)}
}

func (s *memoryStore) Load(_ context.Context, name string, dest any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (s *memoryStore) Save(_ context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = raw
	return nil
}
