package auth

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"roomsync/internal/models"
)

func TestProofCache_ExpiresEarly(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))
	c := NewProofCache(mock)

	c.Set("lobby", models.Proof{Token: "p1", ExpiresAt: mock.Now().UnixMilli() + 1000})

	p, ok := c.Get("lobby")
	require.True(t, ok)
	require.Equal(t, "p1", p.Token)

	mock.Add(499 * time.Millisecond)
	_, ok = c.Get("lobby")
	require.True(t, ok, "still usable 501ms before expiry")

	mock.Add(time.Millisecond)
	_, ok = c.Get("lobby")
	require.False(t, ok, "unusable within the safety margin")
}

func TestProofCache_IncompleteEntriesAreMisses(t *testing.T) {
	c := NewProofCache(clock.NewMock())
	c.Set("a", models.Proof{Token: "", ExpiresAt: 1 << 50})
	c.Set("b", models.Proof{Token: "x", ExpiresAt: 0})

	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestProofCache_InvalidateAndClear(t *testing.T) {
	mock := clock.NewMock()
	c := NewProofCache(mock)
	exp := mock.Now().Add(time.Minute).UnixMilli()
	c.Set("a", models.Proof{Token: "pa", ExpiresAt: exp})
	c.Set("b", models.Proof{Token: "pb", ExpiresAt: exp})

	c.Invalidate("a")
	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.True(t, ok)

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestCredentials_SessionShadowsAccount(t *testing.T) {
	c := NewCredentials()
	c.SetAccount("vault", "acct")
	p, ok := c.Lookup("vault")
	require.True(t, ok)
	require.Equal(t, "acct", p)

	c.SetSession("vault", "typed")
	p, _ = c.Lookup("vault")
	require.Equal(t, "typed", p)

	c.ClearSession()
	p, _ = c.Lookup("vault")
	require.Equal(t, "acct", p)

	c.ReplaceAccount(map[string]string{"other": "x"})
	_, ok = c.Lookup("vault")
	require.False(t, ok)

	c.Forget("other")
	_, ok = c.Lookup("other")
	require.False(t, ok)
}
