package cache

import (
	"strings"
	"sync"
)

// ReadModel caches values per user. Every Invalidate bumps the user's
// generation; a load that started before the bump is returned to its caller
// but never stored.
type ReadModel[V any] struct {
	store Cache[string, V]

	mu          sync.Mutex
	generations map[string]uint64
}

func NewReadModel[V any](store Cache[string, V]) *ReadModel[V] {
	return &ReadModel[V]{
		store:       store,
		generations: make(map[string]uint64),
	}
}

func userPrefix(userID string) string {
	return userID + "|"
}

// Load returns the cached value for (userID, key), calling load on a miss.
func (m *ReadModel[V]) Load(userID, key string, load func() (V, error)) (V, error) {
	full := userPrefix(userID) + key
	if v, ok := m.store.Get(full); ok {
		return v, nil
	}

	m.mu.Lock()
	gen := m.generations[userID]
	m.mu.Unlock()

	v, err := load()
	if err != nil {
		return v, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[userID] == gen {
		m.store.Set(full, v)
	}
	return v, nil
}

// Invalidate drops every entry of userID and returns how many were removed.
func (m *ReadModel[V]) Invalidate(userID string) int {
	prefix := userPrefix(userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[userID]++
	return m.store.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

func (m *ReadModel[V]) Size() int {
	return m.store.Size()
}
