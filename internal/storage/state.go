package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateStore persists the client-side room registry and the current room.
// Rooms are kept in display order, newest first.
type StateStore interface {
	LoadRooms(ctx context.Context) ([]string, error)
	SaveRooms(ctx context.Context, rooms []string) error
	LoadCurrentRoom(ctx context.Context) (string, error)
	SaveCurrentRoom(ctx context.Context, room string) error
	Close() error
}

const (
	keyRooms       = "rooms"
	keyCurrentRoom = "current_room"
)

// Open returns the store named by kind rooted in dataDir.
func Open(kind, dataDir string) (StateStore, error) {
	switch kind {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "pebble":
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, storageError("create data dir", err)
	}
	if kind == "pebble" {
		return NewPebbleStore(filepath.Join(dataDir, "state.pebble"))
	}
	s, err := NewSQLiteStore(filepath.Join(dataDir, "state.db"))
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// cleanRooms keeps trimmed, non-empty, first-seen names.
func cleanRooms(rooms []string) []string {
	seen := make(map[string]struct{}, len(rooms))
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
