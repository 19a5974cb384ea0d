package localstate

import (
	"context"
	"sync"
)

// Memory is a process-local Backend.
type Memory struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, namespace string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.records[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Save(_ context.Context, namespace string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[namespace] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Remove(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, namespace)
	return nil
}
