package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roomsync/internal/storage"
	"roomsync/internal/utils"
)

// RoomAPI is the authorized room surface a Coordinator drives.
type RoomAPI interface {
	MessageFetcher
	SendMessage(ctx context.Context, room, text string) (json.RawMessage, error)
}

// Coordinator owns the current room. At most one RoomSession is live at a
// time and only the live one may touch the view.
type Coordinator struct {
	base     context.Context
	api      RoomAPI
	view     MessageView
	notifier Notifier
	registry *RoomRegistry
	store    storage.StateStore
	opts     SessionOptions
	logger   zerolog.Logger

	mu      sync.Mutex
	room    string
	current atomic.Pointer[RoomSession]
}

// NewCoordinator builds a coordinator whose sessions live under base.
func NewCoordinator(base context.Context, api RoomAPI, view MessageView, registry *RoomRegistry, store storage.StateStore, notifier Notifier, opts SessionOptions) *Coordinator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Coordinator{
		base:     base,
		api:      api,
		view:     view,
		notifier: notifier,
		registry: registry,
		store:    store,
		opts:     opts.withDefaults(),
		logger:   log.With().Str("component", "coordinator").Logger(),
	}
}

func (c *Coordinator) isCurrent(s *RoomSession) bool {
	return c.current.Load() == s
}

// Start loads the registry and enters the persisted room, or fallbackRoom
// when none was saved. With neither it stays idle.
func (c *Coordinator) Start(ctx context.Context, fallbackRoom string) error {
	if err := c.registry.Load(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("[coordinator] load rooms")
	}
	room, err := c.store.LoadCurrentRoom(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("[coordinator] load current room")
	}
	if strings.TrimSpace(room) == "" {
		room = fallbackRoom
	}
	if strings.TrimSpace(room) == "" {
		return nil
	}
	return c.SwitchRoom(ctx, room)
}

// SwitchRoom tears down the current session and starts one for name. Switching
// to the room already being polled does nothing.
func (c *Coordinator) SwitchRoom(ctx context.Context, name string) error {
	room, err := utils.NormalizeRoomID(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if room == c.room && c.current.Load() != nil {
		c.mu.Unlock()
		return nil
	}
	if old := c.current.Load(); old != nil {
		old.Stop()
	}
	c.view.Clear()

	c.room = room
	if err := c.store.SaveCurrentRoom(ctx, room); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("[coordinator] persist current room")
	}
	if err := c.registry.Add(ctx, room); err != nil {
		c.logger.Warn().Err(err).Str("room", room).Msg("[coordinator] persist rooms")
	}

	sess := NewRoomSession(c.base, room, c.api, c.view, c.opts, c.isCurrent)
	c.current.Store(sess)
	sess.Start()
	c.mu.Unlock()

	c.logger.Info().Str("room", room).Str("session", sess.ID.String()).Msg("[coordinator] switched room")

	sess.LoadMessagesOnce(sess.Context(), true)
	sess.startTimestampRefresher()
	sess.withLiveView(func(v MessageView) { v.RefreshTimestamps() })
	return nil
}

// Send posts text to the current room and pulls the view to the bottom.
// Blank text is ignored.
func (c *Coordinator) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	sess := c.current.Load()
	if sess == nil {
		return ErrNotStarted
	}
	if sess.IsStopped() {
		return ErrSessionStopped
	}
	if _, err := c.api.SendMessage(ctx, sess.RoomID, text); err != nil {
		c.notifier.Error("Send failed", err)
		return err
	}
	sess.refreshAfterSend(sess.Context())
	return nil
}

func (c *Coordinator) Pause() {
	if s := c.current.Load(); s != nil {
		s.Pause()
	}
}

func (c *Coordinator) Resume() {
	if s := c.current.Load(); s != nil {
		s.Resume()
	}
}

// Stop ends the current session. The current room is kept, so SwitchRoom to
// it afterwards starts polling again.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.current.Swap(nil); s != nil {
		s.Stop()
	}
}

func (c *Coordinator) CurrentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Current returns the live session, or nil.
func (c *Coordinator) Current() *RoomSession {
	return c.current.Load()
}

func (c *Coordinator) Registry() *RoomRegistry { return c.registry }
