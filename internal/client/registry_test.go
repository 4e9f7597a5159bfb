package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"roomsync/internal/auth"
	"roomsync/internal/storage"
	"roomsync/internal/utils"
)

func TestRegistry_AddIsNewestFirstAndDeduplicated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := NewRoomRegistry(store, auth.NewCredentials(), 0)

	require.NoError(t, r.Add(ctx, "a"))
	require.NoError(t, r.Add(ctx, " b "))
	require.NoError(t, r.Add(ctx, "a"))

	require.Equal(t, []string{"b", "a"}, r.List())
	require.True(t, r.Contains("b"))

	saved, err := store.LoadRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, saved)

	require.ErrorIs(t, r.Add(ctx, "   "), utils.ErrInvalidRoom)
}

func TestRegistry_CapsAtMaxSize(t *testing.T) {
	ctx := context.Background()
	r := NewRoomRegistry(storage.NewMemoryStore(), nil, 0)

	for i := 0; i < 51; i++ {
		require.NoError(t, r.Add(ctx, fmt.Sprintf("room-%02d", i)))
	}

	rooms := r.List()
	require.Len(t, rooms, 50)
	require.Equal(t, "room-50", rooms[0])
	require.Equal(t, "room-01", rooms[49])
	require.False(t, r.Contains("room-00"), "oldest entry is evicted")
}

func TestRegistry_LoadFiltersAndCaps(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveRooms(ctx, []string{"x", "y", "z"}))

	r := NewRoomRegistry(store, nil, 2)
	require.NoError(t, r.Load(ctx))
	require.Equal(t, []string{"x", "y"}, r.List())
}

func TestRegistry_Remove(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := NewRoomRegistry(store, nil, 0)
	require.NoError(t, r.Add(ctx, "a"))
	require.NoError(t, r.Add(ctx, "b"))
	require.NoError(t, r.Add(ctx, "c"))

	require.NoError(t, r.Remove(ctx, "b"))
	require.NoError(t, r.Remove(ctx, "missing"))
	require.Equal(t, []string{"c", "a"}, r.List())

	saved, err := store.LoadRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, saved)
}

func TestRegistry_Passwords(t *testing.T) {
	creds := auth.NewCredentials()
	creds.SetAccount("vault", "acct")
	r := NewRoomRegistry(storage.NewMemoryStore(), creds, 0)

	pw, ok := r.Password("vault")
	require.True(t, ok)
	require.Equal(t, "acct", pw)

	r.SetPassword("vault", "typed")
	pw, _ = r.Password("vault")
	require.Equal(t, "typed", pw)

	_, ok = NewRoomRegistry(storage.NewMemoryStore(), nil, 0).Password("vault")
	require.False(t, ok)
}
