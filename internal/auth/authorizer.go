package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"roomsync/internal/backend"
	"roomsync/internal/metrics"
	"roomsync/internal/models"
	"roomsync/internal/utils"
)

// API is the part of the backend client the authorizer needs.
type API interface {
	RoomProof(ctx context.Context, room string) (models.ProofResponse, error)
	SaveRoomPassword(ctx context.Context, room, password string) (models.ActionResult, error)
	Room(ctx context.Context, op backend.RoomOp, room string, header http.Header, body any) (*backend.Response, error)
}

// PasswordPrompter asks the user for a room password. A nil answer with a nil
// error means the user cancelled.
type PasswordPrompter interface {
	PromptPassword(ctx context.Context, room string, purpose models.PromptPurpose) (*models.PasswordAnswer, error)
}

// Authorizer performs room operations with proof and password headers, and
// on a 401/403 asks for a password and retries exactly once.
type Authorizer struct {
	api     API
	proofs  *ProofCache
	creds   *Credentials
	metrics *metrics.Metrics
	logger  zerolog.Logger

	promptMu sync.RWMutex
	prompt   PasswordPrompter

	// challenges keeps one password prompt in flight per room.
	challenges singleflight.Group
}

func NewAuthorizer(api API, proofs *ProofCache, creds *Credentials, prompt PasswordPrompter, m *metrics.Metrics) *Authorizer {
	if m == nil {
		m = metrics.Nop()
	}
	return &Authorizer{
		api:     api,
		proofs:  proofs,
		creds:   creds,
		prompt:  prompt,
		metrics: m,
		logger:  log.With().Str("component", "auth").Logger(),
	}
}

func (a *Authorizer) SetPrompter(p PasswordPrompter) {
	a.promptMu.Lock()
	a.prompt = p
	a.promptMu.Unlock()
}

func (a *Authorizer) prompter() PasswordPrompter {
	a.promptMu.RLock()
	defer a.promptMu.RUnlock()
	return a.prompt
}

func (a *Authorizer) Proofs() *ProofCache       { return a.proofs }
func (a *Authorizer) Credentials() *Credentials { return a.creds }

// Proof returns a usable proof for room, minting one when the cache has none.
// Mint failures yield "" and the request goes ahead without a proof.
func (a *Authorizer) Proof(ctx context.Context, room string) string {
	if p, ok := a.proofs.Get(room); ok {
		return p.Token
	}
	res, err := a.api.RoomProof(ctx, room)
	if err != nil {
		a.metrics.ProofMints.WithLabelValues("error").Inc()
		a.logger.Debug().Err(err).Str("room", room).Msg("[auth] proof mint failed")
		return ""
	}
	if !res.Usable() {
		a.metrics.ProofMints.WithLabelValues("rejected").Inc()
		a.logger.Debug().Str("room", room).Str("error", res.Error).Msg("[auth] proof not issued")
		return ""
	}
	a.metrics.ProofMints.WithLabelValues("ok").Inc()
	a.proofs.Set(room, models.Proof{Token: res.Proof, ExpiresAt: res.Expires})
	return res.Proof
}

// GetMessages fetches the room's full message list. A response without a
// messages field decodes to a nil Messages slice.
func (a *Authorizer) GetMessages(ctx context.Context, room string) (*models.MessagesResponse, error) {
	body, err := a.do(ctx, backend.OpMessages, room, nil)
	if err != nil {
		return nil, err
	}
	var out models.MessagesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, utils.MalformedError(err)
	}
	return &out, nil
}

// SendMessage posts text to room and returns the server's reply as-is.
func (a *Authorizer) SendMessage(ctx context.Context, room, text string) (json.RawMessage, error) {
	body, err := a.do(ctx, backend.OpSend, room, models.SendRequest{Text: text})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, utils.ErrMalformedResponse.WithDetails("send reply is not JSON")
	}
	return json.RawMessage(body), nil
}

func (a *Authorizer) headers(room, proof, password string) http.Header {
	h := http.Header{}
	if proof != "" {
		h.Set(backend.HeaderRoomProof, proof)
	}
	if password == "" {
		password, _ = a.creds.Lookup(room)
	}
	if password != "" {
		h.Set(backend.HeaderRoomPassword, password)
	}
	return h
}

func (a *Authorizer) do(ctx context.Context, op backend.RoomOp, room string, body any) ([]byte, error) {
	proof := a.Proof(ctx, room)
	header := a.headers(room, proof, "")
	resp, err := a.api.Room(ctx, op, room, header, body)
	if err != nil {
		return nil, err
	}

	if resp.Challenged() {
		a.logger.Info().Str("room", room).Int("status", resp.Status).Msgf("[auth] %s challenged", op)
		password, err := a.retryPassword(ctx, room, header.Get(backend.HeaderRoomPassword))
		if err != nil {
			a.metrics.Challenges.WithLabelValues("cancelled").Inc()
			return nil, err
		}

		a.proofs.Invalidate(room)
		proof = a.Proof(ctx, room)
		resp, err = a.api.Room(ctx, op, room, a.headers(room, proof, password), body)
		if err != nil {
			return nil, err
		}
		if resp.Challenged() {
			a.metrics.Challenges.WithLabelValues("failed").Inc()
			return nil, ErrRejected
		}
		a.metrics.Challenges.WithLabelValues("retried").Inc()
	}

	if !resp.OK() {
		return nil, utils.NetworkStatusError(resp.Status)
	}
	return resp.Body, nil
}

// retryPassword picks the password for the single retry. A password stored
// since the first attempt went out (by a concurrent challenge) is used as-is;
// otherwise the user is asked, with concurrent callers for the same room
// sharing one prompt.
func (a *Authorizer) retryPassword(ctx context.Context, room, sent string) (string, error) {
	if pw, ok := a.creds.Lookup(room); ok && pw != sent {
		return pw, nil
	}
	for {
		ch := a.challenges.DoChan(room, func() (any, error) {
			return a.challenge(ctx, room)
		})
		select {
		case <-ctx.Done():
			return "", utils.ErrAuthRequired.Wrap(ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				// the prompt belonged to a caller whose context ended first
				if res.Shared && ctx.Err() == nil && isContextError(res.Err) {
					continue
				}
				return "", res.Err
			}
			return res.Val.(*models.PasswordAnswer).Password, nil
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// challenge prompts for a password and records it. A remembered password is
// only cached locally once the account has accepted it.
func (a *Authorizer) challenge(ctx context.Context, room string) (*models.PasswordAnswer, error) {
	p := a.prompter()
	if p == nil {
		return nil, ErrNoPrompter
	}
	ans, err := p.PromptPassword(ctx, room, models.PurposeAccess)
	if err != nil {
		return nil, utils.ErrAuthRequired.Wrap(err)
	}
	if ans == nil || ans.Password == "" {
		return nil, ErrCancelled
	}

	if ans.Remember {
		res, err := a.api.SaveRoomPassword(ctx, room, ans.Password)
		switch {
		case err != nil:
			a.logger.Warn().Err(err).Str("room", room).Msg("[auth] save room password")
		case !res.Success:
			a.logger.Warn().Str("room", room).Str("error", res.Error).Msg("[auth] save room password rejected")
		default:
			a.creds.SetAccount(room, ans.Password)
		}
	} else {
		a.creds.SetSession(room, ans.Password)
	}
	return ans, nil
}
