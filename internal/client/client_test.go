package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"roomsync/internal/backend/backendtest"
	"roomsync/internal/config"
	"roomsync/internal/models"
	"roomsync/internal/storage"
	"roomsync/internal/utils"
)

type scriptedPrompt struct {
	mu      sync.Mutex
	answers []*models.PasswordAnswer
	asked   []models.PromptPurpose
}

func (p *scriptedPrompt) PromptPassword(_ context.Context, _ string, purpose models.PromptPurpose) (*models.PasswordAnswer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, purpose)
	if len(p.answers) == 0 {
		return nil, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

type clientFixture struct {
	srv      *backendtest.Server
	cli      *Client
	view     *fakeView
	prompt   *scriptedPrompt
	notifier *recordingNotifier
}

func newClientFixture(t *testing.T) *clientFixture {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.ChatBaseURL = srv.URL
	cfg.AccountBaseURL = srv.URL
	cfg.Store = config.StoreMemory
	cfg.RateLimit = 0

	f := &clientFixture{
		srv:      srv,
		view:     &fakeView{metrics: atBottom},
		prompt:   &scriptedPrompt{},
		notifier: &recordingNotifier{},
	}
	cli, err := New(context.Background(), cfg, Deps{
		View:     f.view,
		Prompter: f.prompt,
		Notifier: f.notifier,
		Store:    storage.NewMemoryStore(),
		Clock:    clock.NewMock(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Shutdown() })
	f.cli = cli
	return f
}

func TestNew_RequiresView(t *testing.T) {
	_, err := New(context.Background(), config.Default(), Deps{})
	require.Error(t, err)
	require.Equal(t, utils.KindValidation, utils.KindOf(err))
}

func TestLogin_LoadsAccountPasswords(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	f.srv.SetAccountPassword("vault", "s3cret")

	require.NoError(t, f.cli.Login(ctx, "ana", "pw"))
	require.Equal(t, "ana", f.cli.Username())

	pw, ok := f.cli.Registry.Password("vault")
	require.True(t, ok)
	require.Equal(t, "s3cret", pw)
}

func TestStart_EntersDefaultRoomAndRenders(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	f.srv.AddMessages("general",
		map[string]any{"username": "ana", "text": "hi", "ts": 1700000000000},
		map[string]any{"username": "bo", "text": "yo", "ts": 1700000001000},
	)
	f.cli.Config.DefaultRoom = "general"

	require.NoError(t, f.cli.Start(ctx))
	require.Equal(t, "general", f.cli.CurrentRoom())
	require.Equal(t, []string{"hi", "yo"}, f.view.snapshot().bodies)
	require.Equal(t, []string{"general"}, f.cli.Rooms())
}

func TestProtectedRoom_PromptsOnceThenUsesProof(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cli.Login(ctx, "ana", "pw"))
	f.srv.SetRoomPassword("vault", "s3cret")
	f.srv.AddMessages("vault", map[string]any{"username": "ana", "text": "hidden", "ts": 1700000000000})
	f.prompt.answers = []*models.PasswordAnswer{{Password: "s3cret", Remember: true}}

	require.NoError(t, f.cli.Coord.SwitchRoom(ctx, "vault"))
	require.Eventually(t, func() bool {
		return len(f.view.snapshot().bodies) == 1
	}, 2*time.Second, 10*time.Millisecond)

	saved, ok := f.srv.AccountPassword("vault")
	require.True(t, ok)
	require.Equal(t, "s3cret", saved)

	require.NoError(t, f.cli.Coord.Send(ctx, "again"))
	require.Equal(t, []string{"hidden", "again"}, f.view.snapshot().bodies)

	f.prompt.mu.Lock()
	defer f.prompt.mu.Unlock()
	require.Equal(t, []models.PromptPurpose{models.PurposeAccess}, f.prompt.asked)
}

// overlapPrompt holds each prompt open briefly, then cancels it, recording
// how many were open at once.
type overlapPrompt struct {
	mu      sync.Mutex
	open    int
	maxOpen int
	total   int
}

func (p *overlapPrompt) PromptPassword(ctx context.Context, _ string, _ models.PromptPurpose) (*models.PasswordAnswer, error) {
	p.mu.Lock()
	p.total++
	p.open++
	if p.open > p.maxOpen {
		p.maxOpen = p.open
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.open--
		p.mu.Unlock()
	}()

	select {
	case <-time.After(20 * time.Millisecond):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSwitchingIntoProtectedRoom_OnePromptAtATime(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	prompt := &overlapPrompt{}
	f.cli.Auth.SetPrompter(prompt)
	f.srv.SetRoomPassword("vault", "s3cret")
	f.srv.AddMessages("lobby", map[string]any{"username": "ana", "text": "hi", "ts": 1700000000000})

	for i := 0; i < 10; i++ {
		require.NoError(t, f.cli.Coord.SwitchRoom(ctx, "vault"))
		require.NoError(t, f.cli.Coord.SwitchRoom(ctx, "lobby"))
	}
	require.NoError(t, f.cli.Coord.SwitchRoom(ctx, "vault"))
	require.Eventually(t, func() bool {
		prompt.mu.Lock()
		defer prompt.mu.Unlock()
		return prompt.total > 0 && prompt.open == 0
	}, 2*time.Second, 10*time.Millisecond)

	prompt.mu.Lock()
	defer prompt.mu.Unlock()
	require.Equal(t, 1, prompt.maxOpen)
}

func TestClaimLifecycle(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cli.Login(ctx, "me", "pw"))

	f.prompt.answers = []*models.PasswordAnswer{{Password: "mine"}}
	require.NoError(t, f.cli.ClaimRoom(ctx, " den "))
	require.True(t, f.cli.OwnsRoom("den"))
	pw, ok := f.cli.Registry.Password("den")
	require.True(t, ok)
	require.Equal(t, "mine", pw)
	require.Equal(t, 1, f.cli.Auth.Proofs().Len())

	f.prompt.answers = []*models.PasswordAnswer{{Password: "newer"}}
	require.NoError(t, f.cli.UpdateClaimPassword(ctx, "den"))
	pw, _ = f.cli.Registry.Password("den")
	require.Equal(t, "newer", pw)

	require.NoError(t, f.cli.UnclaimRoom(ctx, "den", ""))
	require.False(t, f.cli.OwnsRoom("den"))

	err := f.cli.UnclaimRoom(ctx, "den", "")
	require.ErrorIs(t, err, ErrClaimFailed)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.Len(t, f.notifier.infos, 3)
	require.Len(t, f.notifier.errors, 1)
}

func TestClaimRoom_CancelledPrompt(t *testing.T) {
	f := newClientFixture(t)
	err := f.cli.ClaimRoom(context.Background(), "den")
	require.ErrorIs(t, err, utils.ErrAuthRequired)
	require.Zero(t, f.srv.Count(http.MethodPost, "/user/claim-chat"))
}

func TestForgetRoomPassword(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	f.srv.SetAccountPassword("vault", "s3cret")
	require.NoError(t, f.cli.Login(ctx, "ana", "pw"))

	require.NoError(t, f.cli.ForgetRoomPassword(ctx, "vault"))
	_, ok := f.cli.Registry.Password("vault")
	require.False(t, ok)
	_, ok = f.srv.AccountPassword("vault")
	require.False(t, ok)
}

func TestShutdown_StopsAndClearsSessionState(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()
	f.cli.Config.DefaultRoom = "general"
	require.NoError(t, f.cli.Start(ctx))
	sess := f.cli.Coord.Current()
	f.cli.Registry.SetPassword("general", "typed")

	require.NoError(t, f.cli.Shutdown())
	require.Equal(t, StateStopped, sess.State())
	_, ok := f.cli.Registry.Password("general")
	require.False(t, ok)
	require.Zero(t, f.cli.Auth.Proofs().Len())
}
