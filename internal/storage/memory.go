package storage

import (
	"context"
	"encoding/json"
	"sync"

	"pizzeria-system/internal/domain"
)

// Memory is an in-process Store used in tests and as the degraded fallback
// when the configured store is unavailable.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory { return &Memory{docs: make(map[string][]byte)} }

func (m *Memory) Get(_ context.Context, key string, into any) error {
	m.mu.RLock()
	raw, ok := m.docs[key]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, into)
}

func (m *Memory) Put(_ context.Context, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.docs, key)
	m.mu.Unlock()
	return nil
}
