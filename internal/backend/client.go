// Package backend talks to the chat and account HTTP services.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"roomsync/internal/metrics"
	"roomsync/internal/models"
	"roomsync/internal/utils"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRoomProof     = "X-Room-Auth"
	HeaderRoomPassword  = "X-Room-Password"
	HeaderAdminKey      = "X-Admin-Key"

	DefaultTimeout = 8 * time.Second
	maxBodyBytes   = 4 << 20
)

// RoomOp names the two room-scoped chat operations.
type RoomOp string

const (
	OpMessages RoomOp = "messages"
	OpSend     RoomOp = "send"
)

// Response is a raw reply from a room operation. Status is kept so callers
// can react to 401/403 challenges.
type Response struct {
	Status int
	Body   []byte
}

func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Challenged reports a 401 or 403.
func (r *Response) Challenged() bool {
	return r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden
}

type Options struct {
	ChatBaseURL    string
	AccountBaseURL string
	Timeout        time.Duration
	RateLimit      float64 // requests per second; <= 0 disables limiting
	RateBurst      int
	HTTPClient     *http.Client
	Metrics        *metrics.Metrics
}

type Client struct {
	chatURL    string
	accountURL string
	timeout    time.Duration
	http       *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	tokenMu sync.RWMutex
	token   string
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	limit := rate.Inf
	burst := opts.RateBurst
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if burst < 1 {
		burst = 1
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	return &Client{
		chatURL:    strings.TrimRight(opts.ChatBaseURL, "/"),
		accountURL: strings.TrimRight(opts.AccountBaseURL, "/"),
		timeout:    timeout,
		http:       hc,
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    m,
		logger:     log.With().Str("component", "backend").Logger(),
	}
}

func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// Room performs a room-scoped chat operation. header carries the proof and
// password headers; the bearer token is added here. Any HTTP status is
// returned as a Response; only transport failures are errors.
func (c *Client) Room(ctx context.Context, op RoomOp, room string, header http.Header, body any) (*Response, error) {
	endpoint := fmt.Sprintf("%s/room/%s/%s", c.chatURL, url.PathEscape(room), op)
	method := http.MethodGet
	if op == OpSend {
		method = http.MethodPost
	}
	return c.do(ctx, string(op), method, endpoint, header, body)
}

// do sends one request. The timeout covers reading the body as well.
func (c *Client) do(ctx context.Context, op, method, endpoint string, header http.Header, body any) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, utils.NetworkError(err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, utils.NetworkError(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" && req.Header.Get(HeaderAuthorization) == "" {
		req.Header.Set(HeaderAuthorization, tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, utils.NetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.metrics.RequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, utils.NetworkError(err)
	}
	c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("[http] done")
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// account calls an account endpoint and decodes its JSON reply into out.
// Account endpoints answer {success, error} even on failure statuses, so the
// body is decoded regardless of status when it parses.
func (c *Client) account(ctx context.Context, op, method, path string, header http.Header, body, out any) error {
	resp, err := c.do(ctx, op, method, c.accountURL+path, header, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		if !resp.OK() {
			return utils.NetworkStatusError(resp.Status)
		}
		return utils.MalformedError(err)
	}
	return nil
}

// RoomProof mints a short-lived proof for room.
func (c *Client) RoomProof(ctx context.Context, room string) (models.ProofResponse, error) {
	var out models.ProofResponse
	err := c.account(ctx, "room_proof", http.MethodPost, "/user/room-proof", nil, models.ProofRequest{Room: room}, &out)
	return out, err
}

// RoomPasswords fetches the passwords saved to the account. Null entries are
// dropped.
func (c *Client) RoomPasswords(ctx context.Context) (map[string]string, error) {
	var out models.RoomPasswordsResponse
	if err := c.account(ctx, "room_passwords", http.MethodGet, "/user/room-passwords", nil, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, utils.NewChatError(utils.KindNetwork, "load room passwords").WithDetails(out.Error)
	}
	pw := make(map[string]string, len(out.Passwords))
	for room, p := range out.Passwords {
		if p != nil {
			pw[room] = *p
		}
	}
	return pw, nil
}

func (c *Client) SaveRoomPassword(ctx context.Context, room, password string) (models.ActionResult, error) {
	var out models.ActionResult
	err := c.account(ctx, "save_room_password", http.MethodPost, "/user/room-passwords", nil,
		models.RoomPasswordRequest{Room: room, Password: password}, &out)
	return out, err
}

func (c *Client) DeleteRoomPassword(ctx context.Context, room string) (models.ActionResult, error) {
	var out models.ActionResult
	err := c.account(ctx, "delete_room_password", http.MethodDelete, "/user/room-passwords", nil,
		models.RoomPasswordRequest{Room: room}, &out)
	return out, err
}

func (c *Client) ClaimChat(ctx context.Context, room, password string) (models.ActionResult, error) {
	var out models.ActionResult
	err := c.account(ctx, "claim_chat", http.MethodPost, "/user/claim-chat", nil,
		models.ClaimRequest{ChatName: room, Password: password}, &out)
	return out, err
}

// UnclaimChat releases a claim. adminKey is optional.
func (c *Client) UnclaimChat(ctx context.Context, room, adminKey string) (models.ActionResult, error) {
	var header http.Header
	if adminKey != "" {
		header = http.Header{}
		header.Set(HeaderAdminKey, adminKey)
	}
	var out models.ActionResult
	err := c.account(ctx, "unclaim_chat", http.MethodPost, "/user/unclaim-chat", header,
		models.ClaimRequest{ChatName: room}, &out)
	return out, err
}

func (c *Client) UpdateClaimPassword(ctx context.Context, room, password string) (models.ActionResult, error) {
	var out models.ActionResult
	err := c.account(ctx, "update_claim_password", http.MethodPost, "/user/update-claim-password", nil,
		models.ClaimRequest{ChatName: room, Password: password}, &out)
	return out, err
}

func (c *Client) ClaimedChats(ctx context.Context) ([]models.ClaimInfo, error) {
	var out models.ClaimedChatsResponse
	if err := c.account(ctx, "claimed_chats", http.MethodGet, "/claimed-chats", nil, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, utils.NewChatError(utils.KindNetwork, "load claimed chats").WithDetails(out.Error)
	}
	return out.Claimed, nil
}

// Login exchanges credentials for a token and keeps it for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	return c.authenticate(ctx, "login", "/login", username, password)
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, username, password string) (models.LoginResponse, error) {
	return c.authenticate(ctx, "create", "/create", username, password)
}

func (c *Client) authenticate(ctx context.Context, op, path, username, password string) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.account(ctx, op, http.MethodPost, path, nil, models.Credentials{Username: username, Password: password}, &out)
	if err != nil {
		return out, err
	}
	if out.Success && out.Token != "" {
		c.SetToken(out.Token)
	}
	return out, nil
}
