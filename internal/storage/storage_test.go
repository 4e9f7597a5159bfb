package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]StateStore {
	t.Helper()
	dir := t.TempDir()

	sq, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	require.NoError(t, sq.Migrate())

	pb, err := NewPebbleStore(filepath.Join(dir, "state.pebble"))
	require.NoError(t, err)

	stores := map[string]StateStore{
		"memory": NewMemoryStore(),
		"sqlite": sq,
		"pebble": pb,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			rooms, err := s.LoadRooms(ctx)
			require.NoError(t, err)
			require.Empty(t, rooms)

			cur, err := s.LoadCurrentRoom(ctx)
			require.NoError(t, err)
			require.Equal(t, "", cur)

			require.NoError(t, s.SaveRooms(ctx, []string{"newest", " spaced ", "", "newest", "oldest"}))
			rooms, err = s.LoadRooms(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"newest", "spaced", "oldest"}, rooms)

			require.NoError(t, s.SaveCurrentRoom(ctx, "lobby"))
			require.NoError(t, s.SaveCurrentRoom(ctx, "general"))
			cur, err = s.LoadCurrentRoom(ctx)
			require.NoError(t, err)
			require.Equal(t, "general", cur)

			require.NoError(t, s.SaveRooms(ctx, nil))
			rooms, err = s.LoadRooms(ctx)
			require.NoError(t, err)
			require.Empty(t, rooms)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.SaveRooms(ctx, []string{"a", "b"}))
	require.NoError(t, s.SaveCurrentRoom(ctx, "b"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	rooms, err := s.LoadRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, rooms)
	cur, err := s.LoadCurrentRoom(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", cur)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{name: "memory", kind: "memory"},
		{name: "sqlite", kind: "sqlite"},
		{name: "pebble", kind: "pebble"},
		{name: "unknown", kind: "etcd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.kind, filepath.Join(t.TempDir(), "data"))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, s.SaveCurrentRoom(context.Background(), "x"))
			require.NoError(t, s.Close())
		})
	}
}
