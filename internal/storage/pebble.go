package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleStore keeps the same state as Store in a pebble keyspace, one JSON
// value per key.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, storageError("open pebble", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) get(key string, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return false, ErrNotConnected
	}
	data, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, storageError("pebble get", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(data, v); err != nil {
		return false, storageError("decode "+key, err)
	}
	return true, nil
}

func (s *PebbleStore) set(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return storageError("encode "+key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotConnected
	}
	if err := s.db.Set([]byte(key), val, pebble.Sync); err != nil {
		return storageError("pebble set", err)
	}
	return nil
}

func (s *PebbleStore) LoadRooms(_ context.Context) ([]string, error) {
	var rooms []string
	if _, err := s.get(keyRooms, &rooms); err != nil {
		return nil, err
	}
	return cleanRooms(rooms), nil
}

func (s *PebbleStore) SaveRooms(_ context.Context, rooms []string) error {
	return s.set(keyRooms, cleanRooms(rooms))
}

func (s *PebbleStore) LoadCurrentRoom(_ context.Context) (string, error) {
	var room string
	if _, err := s.get(keyCurrentRoom, &room); err != nil {
		return "", err
	}
	return room, nil
}

func (s *PebbleStore) SaveCurrentRoom(_ context.Context, room string) error {
	return s.set(keyCurrentRoom, room)
}

func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
