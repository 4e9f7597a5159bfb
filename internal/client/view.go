package client

import (
	"roomsync/internal/auth"
	"roomsync/internal/models"
)

// ScrollMetrics describes the rendered list at the moment of a poll. Units are
// whatever the view measures in (pixels, terminal lines) as long as
// ScrollPolicy uses the same.
type ScrollMetrics struct {
	DistanceFromBottom float64
	// AverageRowHeight is 0 when nothing is rendered.
	AverageRowHeight float64
}

// MessageView is the rendering surface a RoomSession reconciles into.
type MessageView interface {
	ScrollMetrics() ScrollMetrics
	// Reset discards everything and renders msgs from index 0.
	Reset(msgs []models.Message)
	// Append renders msgs, the first of which has index startIndex.
	Append(msgs []models.Message, startIndex int)
	ScrollToBottom()
	SetNewMessagesIndicator(visible bool)
	Clear()
	RefreshTimestamps()
}

type PasswordPrompter = auth.PasswordPrompter

// Notifier surfaces user-facing outcomes.
type Notifier interface {
	Error(title string, err error)
	Info(title, msg string)
}

// ScrollPolicy decides when new messages pull the view to the bottom.
type ScrollPolicy struct {
	// At-bottom when the distance is strictly below this.
	PixelThreshold float64
	// Row height assumed when no rows are rendered.
	DefaultRowHeight float64
	// Rows from the bottom that still count as close enough on append.
	RowsSlack int
}

func DefaultScrollPolicy() ScrollPolicy {
	return ScrollPolicy{PixelThreshold: 80, DefaultRowHeight: 60, RowsSlack: 2}
}

type nopNotifier struct{}

func (nopNotifier) Error(string, error)  {}
func (nopNotifier) Info(string, string) {}
