package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is a process-local Store used in tests and as the degraded mode
// when durable storage cannot be opened.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	order  []string
	values map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*collection)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, name, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, ErrNotFound
	}
	value, ok := coll.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(value), nil
}

// GetAll implements Store. Entities come back in insertion order.
func (s *MemoryStore) GetAll(ctx context.Context, name string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(coll.order))
	for _, key := range coll.order {
		out = append(out, cloneBytes(coll.values[key]))
	}
	return out, nil
}

// Add implements Store.
func (s *MemoryStore) Add(ctx context.Context, name, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		coll = &collection{values: make(map[string][]byte)}
		s.collections[name] = coll
	}
	if _, exists := coll.values[key]; exists {
		return ErrDuplicateKey
	}
	coll.values[key] = cloneBytes(value)
	coll.order = append(coll.order, key)
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, name, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return ErrNotFound
	}
	if _, exists := coll.values[key]; !exists {
		return ErrNotFound
	}
	coll.values[key] = cloneBytes(value)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return ErrNotFound
	}
	if _, exists := coll.values[key]; !exists {
		return ErrNotFound
	}
	delete(coll.values, key)
	for i, k := range coll.order {
		if k == key {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	return nil
}

// ClearAll implements Store.
func (s *MemoryStore) ClearAll(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func cloneBytes(value []byte) []byte {
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
