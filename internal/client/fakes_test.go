package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"roomsync/internal/models"
)

type fakeView struct {
	mu            sync.Mutex
	metrics       ScrollMetrics
	rows          []models.Message
	resets        int
	appendStarts  []int
	scrolls       int
	clears        int
	refreshes     int
	indicator     bool
	indicatorSets int
	panicOnRender bool
}

func (v *fakeView) ScrollMetrics() ScrollMetrics {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metrics
}

func (v *fakeView) setMetrics(m ScrollMetrics) {
	v.mu.Lock()
	v.metrics = m
	v.mu.Unlock()
}

func (v *fakeView) Reset(msgs []models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.panicOnRender {
		panic("render exploded")
	}
	v.resets++
	v.rows = append([]models.Message(nil), msgs...)
}

func (v *fakeView) Append(msgs []models.Message, startIndex int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if startIndex != len(v.rows) {
		panic(fmt.Sprintf("append at %d but %d rows rendered", startIndex, len(v.rows)))
	}
	v.appendStarts = append(v.appendStarts, startIndex)
	v.rows = append(v.rows, msgs...)
}

func (v *fakeView) ScrollToBottom() {
	v.mu.Lock()
	v.scrolls++
	v.mu.Unlock()
}

func (v *fakeView) SetNewMessagesIndicator(visible bool) {
	v.mu.Lock()
	v.indicator = visible
	v.indicatorSets++
	v.mu.Unlock()
}

func (v *fakeView) Clear() {
	v.mu.Lock()
	v.clears++
	v.rows = nil
	v.mu.Unlock()
}

func (v *fakeView) RefreshTimestamps() {
	v.mu.Lock()
	v.refreshes++
	v.mu.Unlock()
}

type viewSnapshot struct {
	bodies        []string
	resets        int
	appendStarts  []int
	scrolls       int
	clears        int
	refreshes     int
	indicator     bool
	indicatorSets int
}

func (v *fakeView) snapshot() viewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := viewSnapshot{
		resets:        v.resets,
		appendStarts:  append([]int(nil), v.appendStarts...),
		scrolls:       v.scrolls,
		clears:        v.clears,
		refreshes:     v.refreshes,
		indicator:     v.indicator,
		indicatorSets: v.indicatorSets,
	}
	for _, m := range v.rows {
		s.bodies = append(s.bodies, m.Body)
	}
	return s
}

// fakeRooms serves per-room lists. A room with a gate blocks its fetches
// until the gate is closed.
type fakeRooms struct {
	mu      sync.Mutex
	lists   map[string][]models.Message
	missing map[string]bool
	err     error
	gates   map[string]chan struct{}
	fetches map[string]int
	sent    []string
	sendErr error
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		lists:   map[string][]models.Message{},
		missing: map[string]bool{},
		gates:   map[string]chan struct{}{},
		fetches: map[string]int{},
	}
}

func msgs(bodies ...string) []models.Message {
	out := make([]models.Message, len(bodies))
	for i, b := range bodies {
		out[i] = models.Message{Author: "ana", Body: b}
	}
	return out
}

func (f *fakeRooms) set(room string, bodies ...string) {
	f.mu.Lock()
	f.lists[room] = msgs(bodies...)
	f.mu.Unlock()
}

func (f *fakeRooms) fetchCount(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[room]
}

func (f *fakeRooms) GetMessages(ctx context.Context, room string) (*models.MessagesResponse, error) {
	f.mu.Lock()
	f.fetches[room]++
	gate := f.gates[room]
	err := f.err
	missing := f.missing[room]
	list := append([]models.Message(nil), f.lists[room]...)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if missing {
		return &models.MessagesResponse{}, nil
	}
	return &models.MessagesResponse{Messages: list}, nil
}

func (f *fakeRooms) SendMessage(_ context.Context, room, text string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, room+":"+text)
	f.lists[room] = append(f.lists[room], models.Message{Author: "me", Body: text})
	return json.RawMessage(`{"success":true}`), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (n *recordingNotifier) Error(title string, err error) {
	n.mu.Lock()
	n.errors = append(n.errors, title+": "+err.Error())
	n.mu.Unlock()
}

func (n *recordingNotifier) Info(title, msg string) {
	n.mu.Lock()
	n.infos = append(n.infos, title+": "+msg)
	n.mu.Unlock()
}

var errBoom = errors.New("boom")
