package kv

import "sync"

// Memory is an in-process store with an optional byte quota (0 = unlimited)
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
}

// NewMemory creates an in-memory store
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

// Get returns a copy of the stored value
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores a copy of value unless the total size would exceed the quota
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 && m.usedLocked()-len(m.data[key])+len(key)+len(value) > m.quota {
		return ErrQuotaExceeded
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Remove deletes key; missing keys are not an error
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Used returns the bytes currently accounted against the quota
func (m *Memory) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedLocked()
}

func (m *Memory) usedLocked() int {
	n := 0
	for k, v := range m.data {
		n += len(k) + len(v)
	}
	return n
}
