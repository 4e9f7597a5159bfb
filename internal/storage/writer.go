package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StateWriter is a write-behind StateStore. Saves are queued and a single
// worker flushes them to the underlying store, keeping only the newest value
// of each key per batch. Loads see queued values immediately.
type StateWriter struct {
	store StateStore

	// write queue and worker control
	writeQ   chan stateWriteRequest
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	// newest queued values, served to readers before they hit the store
	latestMu      sync.RWMutex
	latestRooms   []string
	hasRooms      bool
	latestCurrent string
	hasCurrent    bool

	writeBatchSize int
	writeFlushFreq time.Duration
	logger         zerolog.Logger
}

type stateWriteKind int

const (
	writeRooms stateWriteKind = iota
	writeCurrentRoom
)

type stateWriteRequest struct {
	kind  stateWriteKind
	rooms []string
	room  string
}

// NewStateWriter returns a started writer over store. Call Close to drain it.
func NewStateWriter(store StateStore, writeQSize int) *StateWriter {
	return newStateWriter(store, writeQSize, 200*time.Millisecond)
}

func newStateWriter(store StateStore, writeQSize int, flushFreq time.Duration) *StateWriter {
	if writeQSize < 1 {
		writeQSize = 1
	}
	w := &StateWriter{
		store:          store,
		writeQ:         make(chan stateWriteRequest, writeQSize),
		stopCh:         make(chan struct{}),
		writeBatchSize: 32,
		writeFlushFreq: flushFreq,
		logger:         log.With().Str("component", "state_writer").Logger(),
	}
	w.wg.Add(1)
	go w.writeWorker()
	return w
}

func (w *StateWriter) enqueue(req stateWriteRequest) error {
	select {
	case <-w.stopCh:
		return ErrWriterClosed
	default:
	}
	select {
	case w.writeQ <- req:
		return nil
	default:
		// queue full: fail fast to caller
		return ErrQueueFull
	}
}

func (w *StateWriter) SaveRooms(_ context.Context, rooms []string) error {
	cp := cleanRooms(rooms)
	w.latestMu.Lock()
	defer w.latestMu.Unlock()
	if err := w.enqueue(stateWriteRequest{kind: writeRooms, rooms: cp}); err != nil {
		return err
	}
	w.latestRooms, w.hasRooms = cp, true
	return nil
}

func (w *StateWriter) SaveCurrentRoom(_ context.Context, room string) error {
	w.latestMu.Lock()
	defer w.latestMu.Unlock()
	if err := w.enqueue(stateWriteRequest{kind: writeCurrentRoom, room: room}); err != nil {
		return err
	}
	w.latestCurrent, w.hasCurrent = room, true
	return nil
}

func (w *StateWriter) LoadRooms(ctx context.Context) ([]string, error) {
	w.latestMu.RLock()
	if w.hasRooms {
		out := make([]string, len(w.latestRooms))
		copy(out, w.latestRooms)
		w.latestMu.RUnlock()
		return out, nil
	}
	w.latestMu.RUnlock()
	return w.store.LoadRooms(ctx)
}

func (w *StateWriter) LoadCurrentRoom(ctx context.Context) (string, error) {
	w.latestMu.RLock()
	if w.hasCurrent {
		r := w.latestCurrent
		w.latestMu.RUnlock()
		return r, nil
	}
	w.latestMu.RUnlock()
	return w.store.LoadCurrentRoom(ctx)
}

// Close drains the queue, then closes the underlying store.
func (w *StateWriter) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	return w.store.Close()
}

// writeWorker batches writes so bursts of room switches cost one store write
// per key.
func (w *StateWriter) writeWorker() {
	defer w.wg.Done()
	batch := make([]stateWriteRequest, 0, w.writeBatchSize)
	flushTimer := time.NewTimer(w.writeFlushFreq)
	defer flushTimer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		var rooms []string
		var room string
		var haveRooms, haveRoom bool
		for _, r := range batch {
			switch r.kind {
			case writeRooms:
				rooms, haveRooms = r.rooms, true
			case writeCurrentRoom:
				room, haveRoom = r.room, true
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if haveRooms {
			if err := w.store.SaveRooms(ctx, rooms); err != nil {
				w.logger.Error().Err(err).Msg("[state] save rooms")
			}
		}
		if haveRoom {
			if err := w.store.SaveCurrentRoom(ctx, room); err != nil {
				w.logger.Error().Err(err).Msg("[state] save current room")
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-w.stopCh:
			// drain queue before exiting
			for {
				select {
				case req := <-w.writeQ:
					batch = append(batch, req)
				default:
					flush()
					return
				}
			}
		case req := <-w.writeQ:
			batch = append(batch, req)
			if len(batch) >= w.writeBatchSize {
				flush()
				flushTimer.Reset(w.writeFlushFreq)
			}
		case <-flushTimer.C:
			flush()
			flushTimer.Reset(w.writeFlushFreq)
		}
	}
}
