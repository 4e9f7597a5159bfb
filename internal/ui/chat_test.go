package ui

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomsync/internal/client"
	"roomsync/internal/models"
)

func TestScrollMetricsFor(t *testing.T) {
	// 20 items, 10 lines tall: five items fit.
	require.Equal(t, client.ScrollMetrics{DistanceFromBottom: 0, AverageRowHeight: 60}, scrollMetricsFor(20, 15, 10))
	require.Equal(t, client.ScrollMetrics{DistanceFromBottom: 60, AverageRowHeight: 60}, scrollMetricsFor(20, 14, 10))
	require.Equal(t, client.ScrollMetrics{DistanceFromBottom: 600, AverageRowHeight: 60}, scrollMetricsFor(20, 5, 10))
	require.Equal(t, client.ScrollMetrics{DistanceFromBottom: 0, AverageRowHeight: 60}, scrollMetricsFor(3, 0, 10))
	require.Equal(t, client.ScrollMetrics{DistanceFromBottom: 120, AverageRowHeight: 60}, scrollMetricsFor(3, 0, 0))
}

func TestScrollMetricsMatchDefaultPolicy(t *testing.T) {
	policy := client.DefaultScrollPolicy()
	one := scrollMetricsFor(20, 14, 10)
	require.Equal(t, policy.DefaultRowHeight, one.AverageRowHeight)
	require.Less(t, one.DistanceFromBottom, policy.PixelThreshold, "one hidden message still counts as at bottom")
	require.GreaterOrEqual(t, scrollMetricsFor(20, 13, 10).DistanceFromBottom, policy.PixelThreshold)
}

func TestFormatMessage(t *testing.T) {
	th := DefaultTheme()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)

	var m models.Message
	require.NoError(t, json.Unmarshal([]byte(`{"username":"ana","text":"hi [red]","ts":`+
		jsonMillis(now.Add(-90*time.Second))+`}`), &m))
	main, secondary := formatMessage(th, m, now)
	require.Equal(t, "[#89b4fa]ana[-]  hi [red[]", main)
	require.Equal(t, "Today 11:58 · 1m ago", secondary)

	main, secondary = formatMessage(th, models.Message{Body: "https://x.io/a.gif"}, now)
	require.Equal(t, "[#89b4fa]unknown[-]  [::u]https://x.io/a.gif[::-]", main)
	require.Empty(t, secondary)
}

func jsonMillis(t time.Time) string {
	b, _ := json.Marshal(t.UnixMilli())
	return string(b)
}

func TestPromptPasswordHonoursContext(t *testing.T) {
	ui := NewUI(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ans, err := ui.PromptPassword(ctx, "vault", models.PurposeAccess)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, ans)
}

func TestPromptPasswordQueuesBehindOpenPrompt(t *testing.T) {
	ui := NewUI(nil)
	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ui.PromptPassword(first, "vault", models.PurposeAccess)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return len(ui.promptSlot) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ans, err := ui.PromptPassword(ctx, "vault", models.PurposeAccess)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, ans)
	require.Equal(t, uint64(1), ui.promptSeq.Load())

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	require.Len(t, ui.promptSlot, 0)
}

func TestPromptTitle(t *testing.T) {
	require.Equal(t, "[ vault is protected ]", promptTitle("vault", models.PurposeAccess))
	require.Equal(t, "[ Claim vault ]", promptTitle("vault", models.PurposeClaim))
	require.Equal(t, "[ New password for vault ]", promptTitle("vault", models.PurposeUpdateClaim))
}
