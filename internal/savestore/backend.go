package savestore

import (
	"context"
	"errors"
	"sync"
)

// Backend stores one opaque record per slot. Put must replace the record
// atomically: a reader sees either the old or the new bytes.
type Backend interface {
	Get(ctx context.Context, slot string) ([]byte, bool, error)
	Put(ctx context.Context, slot string, data []byte) error
	Close() error
}

// ErrInjected is returned by MemoryBackend writes while failures are armed
var ErrInjected = errors.New("injected write failure")

// MemoryBackend keeps records in a map. It can be told to fail writes.
type MemoryBackend struct {
	mu       sync.Mutex
	records  map[string][]byte
	failures int
	puts     int
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(ctx context.Context, slot string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.records[slot]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryBackend) Put(ctx context.Context, slot string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return ErrInjected
	}
	m.records[slot] = append([]byte(nil), data...)
	m.puts++
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

// FailWrites makes the next n writes fail
func (m *MemoryBackend) FailWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// Puts returns the number of successful writes
func (m *MemoryBackend) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Raw stores data directly, bypassing failure injection
func (m *MemoryBackend) Raw(slot string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[slot] = append([]byte(nil), data...)
}
