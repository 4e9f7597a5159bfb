package storage

import (
	"context"
	"sync"
)

// MemoryStore is a non-persistent StateStore for tests and --store=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   []string
	current string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadRooms(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.rooms))
	copy(out, m.rooms)
	return out, nil
}

func (m *MemoryStore) SaveRooms(_ context.Context, rooms []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms = cleanRooms(rooms)
	return nil
}

func (m *MemoryStore) LoadCurrentRoom(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

func (m *MemoryStore) SaveCurrentRoom(_ context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = room
	return nil
}

func (m *MemoryStore) Close() error { return nil }
