// Package client wires the room sync core: authorized requests, per-room
// polling sessions, the room library and account-side room management.
package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roomsync/internal/auth"
	"roomsync/internal/backend"
	"roomsync/internal/config"
	"roomsync/internal/metrics"
	"roomsync/internal/models"
	"roomsync/internal/storage"
	"roomsync/internal/utils"
)

// Deps are the collaborators a Client does not build itself.
type Deps struct {
	View     MessageView
	Prompter PasswordPrompter
	Notifier Notifier
	// Store defaults to the backend named in the config, behind a StateWriter.
	Store      storage.StateStore
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
}

type Client struct {
	Config   config.Config
	Backend  *backend.Client
	Auth     *auth.Authorizer
	Registry *RoomRegistry
	Coord    *Coordinator
	Store    storage.StateStore
	Metrics  *metrics.Metrics

	prompter PasswordPrompter
	notifier Notifier
	logger   zerolog.Logger

	mu       sync.RWMutex
	username string
	claimed  map[string]models.ClaimInfo
}

func New(ctx context.Context, cfg config.Config, deps Deps) (*Client, error) {
	if deps.View == nil {
		return nil, utils.ValidationError("client needs a message view")
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	store := deps.Store
	if store == nil {
		s, err := storage.Open(cfg.Store, cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store = storage.NewStateWriter(s, 64)
	}

	be := backend.New(backend.Options{
		ChatBaseURL:    cfg.ChatBaseURL,
		AccountBaseURL: cfg.AccountBaseURL,
		Timeout:        cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		HTTPClient:     deps.HTTPClient,
		Metrics:        m,
	})
	creds := auth.NewCredentials()
	authz := auth.NewAuthorizer(be, auth.NewProofCache(clk), creds, deps.Prompter, m)
	registry := NewRoomRegistry(store, creds, cfg.RegistryMaxSize)
	coord := NewCoordinator(ctx, authz, deps.View, registry, store, notifier, SessionOptions{
		PollInterval:  cfg.PollInterval,
		ErrorInterval: cfg.ErrorInterval,
		Clock:         clk,
		Metrics:       m,
	})

	return &Client{
		Config:   cfg,
		Backend:  be,
		Auth:     authz,
		Registry: registry,
		Coord:    coord,
		Store:    store,
		Metrics:  m,
		prompter: deps.Prompter,
		notifier: notifier,
		claimed:  make(map[string]models.ClaimInfo),
		logger:   log.With().Str("component", "client").Logger(),
	}, nil
}

// Login authenticates and pulls the account's saved room passwords and the
// claimed chat list.
func (cli *Client) Login(ctx context.Context, username, password string) error {
	res, err := cli.Backend.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !res.Success {
		return utils.ErrAuthFailed.WithDetails(res.Error)
	}
	cli.mu.Lock()
	cli.username = username
	cli.mu.Unlock()
	cli.logger.Info().Str("user", username).Msg("[client] logged in")
	return cli.SyncAccount(ctx)
}

// UseToken resumes a session from a token obtained earlier.
func (cli *Client) UseToken(ctx context.Context, username, token string) error {
	cli.Backend.SetToken(token)
	cli.mu.Lock()
	cli.username = username
	cli.mu.Unlock()
	return cli.SyncAccount(ctx)
}

// SyncAccount refreshes remembered passwords and claims. A failed claims
// fetch is logged; a failed password fetch is returned.
func (cli *Client) SyncAccount(ctx context.Context) error {
	if err := cli.refreshPasswords(ctx); err != nil {
		return err
	}
	if err := cli.refreshClaims(ctx); err != nil {
		cli.logger.Warn().Err(err).Msg("[client] load claimed chats")
	}
	return nil
}

func (cli *Client) refreshPasswords(ctx context.Context) error {
	pw, err := cli.Backend.RoomPasswords(ctx)
	if err != nil {
		return err
	}
	cli.Auth.Credentials().ReplaceAccount(pw)
	return nil
}

func (cli *Client) refreshClaims(ctx context.Context) error {
	list, err := cli.Backend.ClaimedChats(ctx)
	if err != nil {
		return err
	}
	m := make(map[string]models.ClaimInfo, len(list))
	for _, c := range list {
		if c.ChatName != "" {
			m[c.ChatName] = c
		}
	}
	cli.mu.Lock()
	cli.claimed = m
	cli.mu.Unlock()
	return nil
}

// Start enters the persisted room, or the configured default room.
func (cli *Client) Start(ctx context.Context) error {
	return cli.Coord.Start(ctx, cli.Config.DefaultRoom)
}
