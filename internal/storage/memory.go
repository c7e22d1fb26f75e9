package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by a MemoryStore whose write limit is reached.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// MemoryStore is an in-process Store. A positive MaxValueSize makes Set fail
// for larger values, which mimics a full browser storage quota.
type MemoryStore struct {
	mu           sync.RWMutex
	values       map[string]string
	MaxValueSize int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MaxValueSize > 0 && len(value) > m.MaxValueSize {
		return ErrQuotaExceeded
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
