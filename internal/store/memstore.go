package store

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-process Store. It backs the per-run scratch space and is
// the default route of a Composite store.
type MemStore struct {
	mu    sync.RWMutex
	files map[string]FileRecord
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string]FileRecord)}
}

func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	return sortedUnique(paths), nil
}

func (m *MemStore) Get(_ context.Context, path string) (FileRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[NormalizePath(path)]
	return rec, ok, nil
}

func (m *MemStore) Put(_ context.Context, path string, rec FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[NormalizePath(path)] = rec
	return nil
}

func (m *MemStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, NormalizePath(path))
	return nil
}
