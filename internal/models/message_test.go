package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageUnmarshal(t *testing.T) {
	var res MessagesResponse
	err := json.Unmarshal([]byte(`{"messages":[
		{"username":"ana","text":"hi","ts":1700000000123},
		{"username":42,"text":"num author","created_at":"2024-03-01T10:00:00Z"},
		{"text":"no author","timestamp":null,"time":1700000000},
		{"username":null,"text":"bare"}
	]}`), &res)
	require.NoError(t, err)
	require.True(t, res.HasMessages())
	require.Len(t, res.Messages, 4)

	m := res.Messages[0]
	require.Equal(t, "ana", m.DisplayAuthor())
	ts, ok := m.Timestamp()
	require.True(t, ok)
	require.True(t, ts.Equal(time.UnixMilli(1700000000123)))

	require.Equal(t, "42", res.Messages[1].Author)
	ts, ok = res.Messages[1].Timestamp()
	require.True(t, ok)
	require.True(t, ts.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	require.Equal(t, UnknownAuthor, res.Messages[2].DisplayAuthor())
	ts, ok = res.Messages[2].Timestamp()
	require.True(t, ok, "null timestamp falls through to the next key")
	require.True(t, ts.Equal(time.UnixMilli(1700000000000)))

	_, ok = res.Messages[3].Timestamp()
	require.False(t, ok)
	require.Equal(t, UnknownAuthor, res.Messages[3].DisplayAuthor())
}

func TestMessagesResponseMissingList(t *testing.T) {
	var res MessagesResponse
	require.NoError(t, json.Unmarshal([]byte(`{"error":"gone"}`), &res))
	require.False(t, res.HasMessages())

	require.NoError(t, json.Unmarshal([]byte(`{"messages":[]}`), &res))
	require.True(t, res.HasMessages())
	require.Empty(t, res.Messages)
}

func TestMessageMarshalWritesTs(t *testing.T) {
	b, err := json.Marshal(Message{Author: "ana", Body: "hi", TimestampRaw: json.Number("5")})
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"ana","text":"hi","ts":5}`, string(b))
}
