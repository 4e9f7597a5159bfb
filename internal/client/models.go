package client

import (
	"time"

	"github.com/benbjohnson/clock"

	"roomsync/internal/metrics"
)

type SessionState int

const (
	StateIdle SessionState = iota
	StatePolling
	StatePaused
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const (
	DefaultPollInterval      = 1500 * time.Millisecond
	DefaultErrorInterval     = 3000 * time.Millisecond
	DefaultTimestampInterval = 30 * time.Second
	DefaultRegistryMaxSize   = 50
)

// SessionOptions configure every RoomSession a Coordinator creates.
type SessionOptions struct {
	PollInterval      time.Duration
	ErrorInterval     time.Duration
	TimestampInterval time.Duration
	Policy            ScrollPolicy
	Clock             clock.Clock
	Metrics           *metrics.Metrics
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ErrorInterval <= 0 {
		o.ErrorInterval = DefaultErrorInterval
	}
	if o.TimestampInterval <= 0 {
		o.TimestampInterval = DefaultTimestampInterval
	}
	if o.Policy == (ScrollPolicy{}) {
		o.Policy = DefaultScrollPolicy()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Nop()
	}
	return o
}
