package kv

import (
	"context"
	"sync"
)

type memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates a process-local Store. Values do not survive a restart.
func NewMemory() Store {
	return &memory{values: make(map[string]string)}
}

func (m *memory) Get(_ context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memory) Set(_ context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *memory) Remove(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}
