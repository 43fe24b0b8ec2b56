package store

import (
	"context"
	"errors"
	"sync"
)

var errUnavailable = errors.New("store unavailable")

// Memory is an in-process KV used in tests and local development.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
	// failing forces every operation to error, for fail-closed tests
	failing bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Fail makes every subsequent operation return an error.
func (m *Memory) Fail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = fail
}

func (m *Memory) Get(ctx context.Context, owner, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing {
		return "", errUnavailable
	}
	v, ok := m.entries[owner+"\x00"+key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(ctx context.Context, owner, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errUnavailable
	}
	m.entries[owner+"\x00"+key] = value
	return nil
}

func (m *Memory) Delete(ctx context.Context, owner, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errUnavailable
	}
	delete(m.entries, owner+"\x00"+key)
	return nil
}
