// Package blob provides BlobStore implementations.
package blob

import (
	"context"
	"sync"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	puts  int
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Get returns a copy of the blob under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put stores a copy of data under key.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = append([]byte(nil), data...)
	m.puts++
	return nil
}

// Puts returns how many writes the store has accepted.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
