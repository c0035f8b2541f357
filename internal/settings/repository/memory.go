package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"community-cms/backend/internal/settings/domain"
)

// MemoryStore is an in-memory settings store for development and tests.
// SetErr makes every call fail, simulating an unreachable store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[[2]string]domain.Setting
	err   error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[[2]string]domain.Setting)}
}

func (m *MemoryStore) Get(_ context.Context, category, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return "", false, m.err
	}
	s, ok := m.items[[2]string{category, key}]
	return s.Value, ok, nil
}

func (m *MemoryStore) ListByCategory(_ context.Context, category string) ([]domain.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Setting
	for k, s := range m.items {
		if k[0] == category {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, s *domain.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	m.items[[2]string{s.Category, s.Key}] = *s
	return nil
}

// SetErr sets or clears the simulated failure.
func (m *MemoryStore) SetErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
