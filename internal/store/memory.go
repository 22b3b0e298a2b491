package store

import (
	"context"
	"sync"
)

// Memory is an in-process key-value store. It counts reads and writes.
type Memory struct {
	mu     sync.Mutex
	values map[string]int64
	reads  int
	writes int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]int64{}}
}

// GetAll returns a copy of the stored values.
func (m *Memory) GetAll(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	out := make(map[string]int64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

// SetMany upserts values.
func (m *Memory) SetMany(_ context.Context, values map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// ClearAll removes every value.
func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.values = map[string]int64{}
	return nil
}

// Reads returns the number of GetAll calls.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Writes returns the number of SetMany and ClearAll calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
