// Package metrics exposes client-side Prometheus counters for the sync loop
// and the authorization path.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Metrics struct {
	PollCycles       *prometheus.CounterVec
	FetchErrors      prometheus.Counter
	Challenges       *prometheus.CounterVec
	ProofMints       *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RenderedMessages prometheus.Gauge
	ActiveSessions   prometheus.Gauge
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsync_poll_cycles_total",
			Help: "Poll loop iterations by outcome",
		}, []string{"outcome"}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomsync_fetch_errors_total",
			Help: "Message fetches that failed and were swallowed",
		}),
		Challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsync_auth_challenges_total",
			Help: "401/403 challenges by result",
		}, []string{"result"}),
		ProofMints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsync_proof_mints_total",
			Help: "Room proof mint attempts by result",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomsync_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		RenderedMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomsync_rendered_messages",
			Help: "Messages rendered for the current room",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomsync_active_sessions",
			Help: "Running room sessions",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PollCycles, m.FetchErrors, m.Challenges, m.ProofMints,
			m.RequestDuration, m.RenderedMessages, m.ActiveSessions)
	}
	return m
}

// Nop returns unregistered collectors for callers that do not export metrics.
func Nop() *Metrics { return New(nil) }

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("[metrics] serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
