package client

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roomsync/internal/models"
)

// MessageFetcher returns a room's full, server-ordered message list.
type MessageFetcher interface {
	GetMessages(ctx context.Context, room string) (*models.MessagesResponse, error)
}

// RoomSession polls one room and reconciles the server list into a
// MessageView. It is single-use: once stopped it never polls again.
type RoomSession struct {
	ID     uuid.UUID
	RoomID string

	fetcher   MessageFetcher
	view      MessageView
	opts      SessionOptions
	logger    zerolog.Logger
	isCurrent func(*RoomSession) bool

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	started bool
	paused  bool
	stopped bool

	// renderMu serializes reconciliation. Stop takes it, so nothing touches
	// the view on behalf of this session once Stop has returned.
	renderMu          sync.Mutex
	lastRenderedCount int
	// fetchSeq numbers fetches as they start; appliedSeq is the newest one
	// reconciled, so a slow older reply cannot roll the view back.
	fetchSeq   atomic.Uint64
	appliedSeq uint64

	// sleepHook observes every back-off the loop chooses.
	sleepHook func(time.Duration)
}

// NewRoomSession creates an idle session. isCurrent may be nil; when set, the
// session only renders while it returns true. The session's context derives
// from parent and is cancelled by Stop.
func NewRoomSession(parent context.Context, room string, fetcher MessageFetcher, view MessageView, opts SessionOptions, isCurrent func(*RoomSession) bool) *RoomSession {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.New()
	return &RoomSession{
		ID:        id,
		RoomID:    room,
		fetcher:   fetcher,
		view:      view,
		opts:      opts.withDefaults(),
		isCurrent: isCurrent,
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		logger: log.With().
			Str("component", "room_session").
			Str("room", room).
			Str("session", id.String()).
			Logger(),
	}
}

// Start launches the poll loop. Calling it twice, or after Stop, does nothing.
func (s *RoomSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.loop()
}

func (s *RoomSession) Pause() {
	s.mu.Lock()
	if !s.stopped {
		s.paused = true
	}
	s.mu.Unlock()
}

func (s *RoomSession) Resume() {
	s.mu.Lock()
	if !s.stopped {
		s.paused = false
	}
	s.mu.Unlock()
}

// Stop ends the session for good. It is idempotent and must not be called
// from inside a MessageView method.
func (s *RoomSession) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.paused = true
	close(s.stopCh)
	s.mu.Unlock()

	s.cancel()
	// wait out any reconciliation already past its liveness check
	s.renderMu.Lock()
	s.renderMu.Unlock()
	s.logger.Debug().Msg("[poll] session stopped")
}

func (s *RoomSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return StateStopped
	case !s.started:
		return StateIdle
	case s.paused:
		return StatePaused
	}
	return StatePolling
}

func (s *RoomSession) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *RoomSession) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Done is closed when the poll loop goroutine has exited. It stays open for a
// session that was never started.
func (s *RoomSession) Done() <-chan struct{} { return s.done }

// Context is cancelled when the session stops.
func (s *RoomSession) Context() context.Context { return s.ctx }

func (s *RoomSession) LastRenderedCount() int {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.lastRenderedCount
}

func (s *RoomSession) loop() {
	defer close(s.done)
	s.opts.Metrics.ActiveSessions.Inc()
	defer s.opts.Metrics.ActiveSessions.Dec()
	s.logger.Debug().Msg("[poll] loop started")

	for !s.IsStopped() {
		wait := s.opts.PollInterval
		if err := s.cycle(); err != nil {
			s.opts.Metrics.PollCycles.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("[poll] cycle failed")
			wait = s.opts.ErrorInterval
		}
		if !s.sleep(wait) {
			return
		}
	}
}

func (s *RoomSession) sleep(d time.Duration) bool {
	if s.sleepHook != nil {
		s.sleepHook(d)
	}
	t := s.opts.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stopCh:
		return false
	}
}

// cycle is one loop iteration. A panic out of the view or fetcher is the
// error path and earns the longer back-off.
func (s *RoomSession) cycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panic: %v", r)
		}
	}()
	if s.IsPaused() {
		s.opts.Metrics.PollCycles.WithLabelValues("paused").Inc()
		return nil
	}
	s.LoadMessagesOnce(s.ctx, false)
	s.opts.Metrics.PollCycles.WithLabelValues("ok").Inc()
	return nil
}

// LoadMessagesOnce fetches the room once and reconciles the result. Fetch
// errors are logged and dropped; a reply without a message list changes
// nothing, and neither does one overtaken by a fetch started after it.
func (s *RoomSession) LoadMessagesOnce(ctx context.Context, forceScroll bool) {
	seq := s.fetchSeq.Add(1)
	res, err := s.fetcher.GetMessages(ctx, s.RoomID)
	if err != nil {
		if ctx.Err() == nil {
			s.opts.Metrics.FetchErrors.Inc()
			s.logger.Debug().Err(err).Msg("[poll] fetch failed")
		}
		return
	}
	if !res.HasMessages() {
		return
	}
	s.reconcile(seq, res.Messages, forceScroll)
}

func (s *RoomSession) live() bool {
	if s.IsStopped() {
		return false
	}
	return s.isCurrent == nil || s.isCurrent(s)
}

// withLiveView runs fn against the view only while the session is live.
func (s *RoomSession) withLiveView(fn func(MessageView)) bool {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if !s.live() {
		return false
	}
	fn(s.view)
	return true
}

func (s *RoomSession) reconcile(seq uint64, msgs []models.Message, forceScroll bool) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if !s.live() {
		s.logger.Debug().Msg("[poll] dropping result for inactive session")
		return
	}
	if seq < s.appliedSeq {
		s.logger.Debug().Uint64("seq", seq).Uint64("applied", s.appliedSeq).Msg("[poll] dropping out-of-order result")
		return
	}
	s.appliedSeq = seq

	policy := s.opts.Policy
	m := s.view.ScrollMetrics()
	avg := m.AverageRowHeight
	if avg <= 0 {
		avg = policy.DefaultRowHeight
	}
	away := int(math.Max(0, math.Round(m.DistanceFromBottom/math.Max(1, avg))))
	wasAtBottom := m.DistanceFromBottom < policy.PixelThreshold

	n := len(msgs)
	last := s.lastRenderedCount
	switch {
	case last == 0 || n < last:
		s.view.Reset(msgs)
		if wasAtBottom || forceScroll {
			s.view.ScrollToBottom()
		}
	case n > last:
		s.view.Append(msgs[last:], last)
		if wasAtBottom || away <= policy.RowsSlack || forceScroll {
			s.view.ScrollToBottom()
			s.view.SetNewMessagesIndicator(false)
		} else {
			s.view.SetNewMessagesIndicator(true)
		}
	}
	s.lastRenderedCount = n
	s.opts.Metrics.RenderedMessages.Set(float64(n))
}

// refreshAfterSend shows the just-sent message and clears the indicator.
func (s *RoomSession) refreshAfterSend(ctx context.Context) {
	s.LoadMessagesOnce(ctx, true)
	s.withLiveView(func(v MessageView) { v.SetNewMessagesIndicator(false) })
}

// startTimestampRefresher re-renders relative times until the session stops.
func (s *RoomSession) startTimestampRefresher() {
	go func() {
		t := s.opts.Clock.Ticker(s.opts.TimestampInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.withLiveView(func(v MessageView) { v.RefreshTimestamps() })
			case <-s.stopCh:
				return
			}
		}
	}()
}
