package store

import (
	"context"
	"sync"
)

type memoryEntry struct {
	value   []byte
	version int64
}

// Memory is an in-process KV used by tests and single-node development
// runs. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, 0, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, e.version, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, expect int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := int64(0)
	if e, ok := m.entries[key]; ok {
		current = e.version
	}
	if current != expect {
		return 0, ErrStaleWrite
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	next := current + 1
	m.entries[key] = memoryEntry{value: stored, version: next}
	return next, nil
}
