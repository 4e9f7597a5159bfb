// Package models defines the wire types exchanged with the chat and account backends.
package models

import (
	"bytes"
	"encoding/json"
	"time"

	"roomsync/internal/utils"
)

// TimestampKeys lists the fields a server may use for a message timestamp,
// in lookup order.
var TimestampKeys = []string{"ts", "timestamp", "created_at", "createdAt", "time", "date", "when"}

const UnknownAuthor = "unknown"

type Message struct {
	Author       string `json:"username"`
	Body         string `json:"text"`
	TimestampRaw any    `json:"-"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m = Message{}
	m.Author = looseString(raw["username"])
	m.Body = looseString(raw["text"])
	for _, key := range TimestampKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var ts any
		d := json.NewDecoder(bytes.NewReader(v))
		d.UseNumber()
		if err := d.Decode(&ts); err != nil || ts == nil {
			continue
		}
		m.TimestampRaw = ts
		break
	}
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"username": m.Author,
		"text":     m.Body,
	}
	if m.TimestampRaw != nil {
		out["ts"] = m.TimestampRaw
	}
	return json.Marshal(out)
}

// DisplayAuthor falls back to UnknownAuthor for messages without a username.
func (m Message) DisplayAuthor() string {
	if m.Author == "" {
		return UnknownAuthor
	}
	return m.Author
}

// Timestamp resolves TimestampRaw. ok is false when it is absent or unparseable.
func (m Message) Timestamp() (time.Time, bool) {
	return utils.ParseTimestamp(m.TimestampRaw)
}

// looseString reads a JSON value as text; non-string scalars keep their
// literal form so a numeric username still renders.
func looseString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(v)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// MessagesResponse is the body of GET /room/{room}/messages. A nil Messages
// slice means the server sent no list at all.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

func (r *MessagesResponse) HasMessages() bool {
	return r != nil && r.Messages != nil
}

type SendRequest struct {
	Text string `json:"text"`
}
