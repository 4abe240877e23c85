package cache

import (
	"sort"
	"strings"
	"sync"
)

// MemoryKV keeps the namespace in process memory.
// MaxBytes bounds the sum of all stored values; zero means unlimited.
type MemoryKV struct {
	MaxBytes int

	mu    sync.RWMutex
	data  map[string][]byte
	bytes int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	next := m.bytes - len(m.data[key]) + len(value)
	if m.MaxBytes > 0 && next > m.MaxBytes {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	m.bytes = next
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes -= len(m.data[key])
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
