package client

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roomsync/internal/storage"
	"roomsync/internal/utils"
)

// PasswordBook is where the registry reads and records room passwords.
type PasswordBook interface {
	Lookup(room string) (string, bool)
	SetSession(room, password string)
}

// RoomRegistry is the user's room library: newest first, no duplicates, at
// most maxSize entries.
type RoomRegistry struct {
	mu        sync.RWMutex
	rooms     []string
	maxSize   int
	store     storage.StateStore
	passwords PasswordBook
	logger    zerolog.Logger
}

func NewRoomRegistry(store storage.StateStore, passwords PasswordBook, maxSize int) *RoomRegistry {
	if maxSize <= 0 {
		maxSize = DefaultRegistryMaxSize
	}
	return &RoomRegistry{
		maxSize:   maxSize,
		store:     store,
		passwords: passwords,
		logger:    log.With().Str("component", "registry").Logger(),
	}
}

// Load replaces the in-memory list with the persisted one, dropping blank
// and duplicate names.
func (r *RoomRegistry) Load(ctx context.Context) error {
	rooms, err := r.store.LoadRooms(ctx)
	if err != nil {
		return err
	}
	clean := make([]string, 0, len(rooms))
	seen := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		room = strings.TrimSpace(room)
		if room == "" || seen[room] {
			continue
		}
		seen[room] = true
		clean = append(clean, room)
	}
	if len(clean) > r.maxSize {
		clean = clean[:r.maxSize]
	}
	r.mu.Lock()
	r.rooms = clean
	r.mu.Unlock()
	return nil
}

func (r *RoomRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.rooms))
	copy(out, r.rooms)
	return out
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) Contains(room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(room) >= 0
}

func (r *RoomRegistry) indexOf(room string) int {
	for i, existing := range r.rooms {
		if existing == room {
			return i
		}
	}
	return -1
}

// Add puts room at the front unless it is already listed, evicts past
// maxSize from the oldest end and persists. The in-memory list is updated
// even when persisting fails.
func (r *RoomRegistry) Add(ctx context.Context, room string) error {
	room, err := utils.NormalizeRoomID(room)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.indexOf(room) < 0 {
		r.rooms = append([]string{room}, r.rooms...)
	}
	if len(r.rooms) > r.maxSize {
		evicted := r.rooms[r.maxSize:]
		r.logger.Debug().Strs("evicted", evicted).Msg("[registry] over capacity")
		r.rooms = r.rooms[:r.maxSize:r.maxSize]
	}
	snapshot := append([]string(nil), r.rooms...)
	r.mu.Unlock()
	return r.store.SaveRooms(ctx, snapshot)
}

func (r *RoomRegistry) Remove(ctx context.Context, room string) error {
	room = strings.TrimSpace(room)
	r.mu.Lock()
	i := r.indexOf(room)
	if i < 0 {
		r.mu.Unlock()
		return nil
	}
	r.rooms = append(r.rooms[:i:i], r.rooms[i+1:]...)
	snapshot := append([]string(nil), r.rooms...)
	r.mu.Unlock()
	return r.store.SaveRooms(ctx, snapshot)
}

// Password returns the credential the next request to room would use.
func (r *RoomRegistry) Password(room string) (string, bool) {
	if r.passwords == nil {
		return "", false
	}
	return r.passwords.Lookup(room)
}

// SetPassword records a session password for room.
func (r *RoomRegistry) SetPassword(room, password string) {
	if r.passwords != nil {
		r.passwords.SetSession(room, password)
	}
}
