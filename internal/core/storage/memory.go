package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

type memoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
	reads  atomic.Int64
	writes atomic.Int64
}

// NewMemory returns a Storage that keeps copies of values in memory.
func NewMemory() Storage {
	return &memoryStorage{values: make(map[string][]byte)}
}

func (m *memoryStorage) Create(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	m.values[key] = slices.Clone(value)
	m.writes.Add(1)
	return nil
}

func (m *memoryStorage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	m.reads.Add(1)
	return slices.Clone(v), nil
}

func (m *memoryStorage) Update(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	m.values[key] = slices.Clone(value)
	m.writes.Add(1)
	return nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(m.values, key)
	return nil
}

func (m *memoryStorage) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *memoryStorage) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Statistics{Keys: len(m.values), Reads: m.reads.Load(), Writes: m.writes.Load()}
	for _, v := range m.values {
		st.Bytes += int64(len(v))
	}
	return st
}
