package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomsync/internal/models"
	"roomsync/internal/storage"
)

func TestPrintView(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)
	v := &printView{out: &buf, now: func() time.Time { return now }}

	v.Reset([]models.Message{{Author: "ana", Body: "hi", TimestampRaw: float64(now.Add(-time.Hour).UnixMilli())}})
	v.Append([]models.Message{{Body: "anon"}}, 1)
	v.Reset(nil)

	require.Equal(t, "--- history ---\n[Today 11:00] ana: hi\n[--:--] unknown: anon\n", buf.String())
}

func TestTerminalPrompterReadsLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))
	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	var out bytes.Buffer
	p := &terminalPrompter{in: in, out: &out}
	ans, err := p.PromptPassword(context.Background(), "vault", models.PurposeAccess)
	require.NoError(t, err)
	require.Equal(t, "s3cret", ans.Password)
	require.Contains(t, out.String(), "Password for vault")
}

func TestRoomsCommandListsAndRemoves(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store, err := storage.Open("sqlite", dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveRooms(ctx, []string{"b", "a"}))
	require.NoError(t, store.SaveCurrentRoom(ctx, "a"))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"rooms", "--config", filepath.Join(dir, "none.yaml"), "--data-dir", dir, "--store", "sqlite"})
	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "  b\n* a\n", out.String())

	out.Reset()
	rootCmd.SetArgs([]string{"rooms", "--config", filepath.Join(dir, "none.yaml"), "--data-dir", dir, "--store", "sqlite", "--remove", "b"})
	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "* a\n", out.String())
}
