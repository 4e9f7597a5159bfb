package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingStore records how many writes reach the backing store.
type countingStore struct {
	*MemoryStore
	mu         sync.Mutex
	roomWrites int
	curWrites  int
	failRooms  bool
}

func (c *countingStore) SaveRooms(ctx context.Context, rooms []string) error {
	c.mu.Lock()
	c.roomWrites++
	fail := c.failRooms
	c.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return c.MemoryStore.SaveRooms(ctx, rooms)
}

func (c *countingStore) SaveCurrentRoom(ctx context.Context, room string) error {
	c.mu.Lock()
	c.curWrites++
	c.mu.Unlock()
	return c.MemoryStore.SaveCurrentRoom(ctx, room)
}

func TestStateWriter_ReadsSeeQueuedValues(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: NewMemoryStore()}
	w := NewStateWriter(backing, 16)

	require.NoError(t, w.SaveRooms(ctx, []string{"b", "a"}))
	require.NoError(t, w.SaveCurrentRoom(ctx, "b"))

	rooms, err := w.LoadRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, rooms)
	cur, err := w.LoadCurrentRoom(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", cur)

	require.NoError(t, w.Close())

	rooms, err = backing.MemoryStore.LoadRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, rooms)
}

func TestStateWriter_CoalescesBatch(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: NewMemoryStore()}
	w := newStateWriter(backing, 64, time.Hour)

	for _, r := range []string{"r1", "r2", "r3", "r4"} {
		require.NoError(t, w.SaveCurrentRoom(ctx, r))
	}
	require.NoError(t, w.Close())

	require.Equal(t, 1, backing.curWrites)
	cur, err := backing.MemoryStore.LoadCurrentRoom(ctx)
	require.NoError(t, err)
	require.Equal(t, "r4", cur)
}

func TestStateWriter_FlushesOnTimer(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: NewMemoryStore()}
	w := NewStateWriter(backing, 8)
	defer w.Close()

	require.NoError(t, w.SaveCurrentRoom(ctx, "lobby"))
	require.Eventually(t, func() bool {
		cur, _ := backing.MemoryStore.LoadCurrentRoom(ctx)
		return cur == "lobby"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStateWriter_RejectsAfterClose(t *testing.T) {
	w := NewStateWriter(NewMemoryStore(), 4)
	require.NoError(t, w.Close())
	err := w.SaveCurrentRoom(context.Background(), "late")
	require.ErrorIs(t, err, ErrWriterClosed)
}

func TestStateWriter_StoreErrorsAreLogged(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: NewMemoryStore(), failRooms: true}
	w := NewStateWriter(backing, 4)

	require.NoError(t, w.SaveRooms(ctx, []string{"x"}))
	require.NoError(t, w.Close())
	require.Equal(t, 1, backing.roomWrites)
}
