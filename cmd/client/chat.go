package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"roomsync/internal/client"
	"roomsync/internal/ui"
	"roomsync/internal/utils"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat UI (default)",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logFile, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	closeLogs := setupLogging(cfg, logFile)
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	m := setupMetrics(ctx, cfg)

	theme, err := ui.LoadThemeFromDir(cfg.ThemeDir, cfg.ThemeName)
	if err != nil {
		log.Warn().Err(err).Msg("[chat] theme unusable, using built-in")
		theme = ui.DefaultTheme()
	}
	u := ui.NewUI(theme)

	cli, err := client.New(ctx, cfg, client.Deps{
		View:     u.Chat,
		Prompter: u,
		Notifier: u,
		Metrics:  m,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := cli.Shutdown(); err != nil {
			log.Error().Err(err).Msg("[chat] shutdown")
		}
	}()

	app := &chatApp{ctx: ctx, cli: cli, ui: u}
	app.wire()

	if flagToken != "" {
		go func() {
			if err := cli.UseToken(ctx, flagUser, flagToken); err != nil {
				u.Error("Session token rejected", err)
			}
			app.enter()
		}()
	} else {
		u.ShowLogin()
	}

	go func() {
		<-ctx.Done()
		u.Stop()
	}()
	return u.Run()
}

// chatApp binds UI events to the client. Every handler runs off the UI
// goroutine.
type chatApp struct {
	ctx context.Context
	cli *client.Client
	ui  *ui.UI
}

func (a *chatApp) wire() {
	a.ui.Login.OnLogin = func(username, password string) {
		if err := a.cli.Login(a.ctx, username, password); err != nil {
			a.ui.Error("Login failed", err)
			return
		}
		a.enter()
	}
	a.ui.Login.OnRegister = func(username, password string) {
		res, err := a.cli.Backend.Register(a.ctx, username, password)
		if err == nil && !res.Success {
			err = utils.ErrAuthFailed.WithDetails(res.Error)
		}
		if err != nil {
			a.ui.Error("Registration failed", err)
			return
		}
		if err := a.cli.UseToken(a.ctx, username, res.Token); err != nil {
			a.ui.Error("Account sync failed", err)
		}
		a.enter()
	}
	a.ui.Login.OnSkip = a.enter

	a.ui.Chat.Handlers = ui.ChatHandlers{
		SwitchRoom: func(room string) {
			if err := a.cli.Coord.SwitchRoom(a.ctx, room); err != nil {
				a.ui.Error("Cannot open room", err)
			}
			a.refresh()
		},
		Send: func(text string) {
			// failures other than "no room" are already reported by the coordinator
			if err := a.cli.Coord.Send(a.ctx, text); errors.Is(err, client.ErrNotStarted) {
				a.ui.Error("No room", errors.New("enter a room before sending"))
			}
		},
		RemoveRoom: func(room string) {
			if err := a.cli.RemoveRoom(a.ctx, room); err != nil {
				a.ui.Error("Remove failed", err)
			}
			a.refresh()
		},
		Claim: a.roomAction(func(room string) error { return a.cli.ClaimRoom(a.ctx, room) }),
		Unclaim: a.roomAction(func(room string) error {
			return a.cli.UnclaimRoom(a.ctx, room, flagAdminKey)
		}),
		UpdateClaimPassword: a.roomAction(func(room string) error {
			return a.cli.UpdateClaimPassword(a.ctx, room)
		}),
		ForgetPassword: a.roomAction(func(room string) error {
			if err := a.cli.ForgetRoomPassword(a.ctx, room); err != nil {
				a.ui.Error("Forget failed", err)
				return err
			}
			a.ui.Info("Forgotten", "Saved password removed for "+room)
			return nil
		}),
	}
}

// roomAction runs fn for the current room and refreshes the side panel.
// Claim errors are reported by the client itself.
func (a *chatApp) roomAction(fn func(room string) error) func(string) {
	return func(room string) {
		if room == "" {
			a.ui.Error("No room", errors.New("enter a room first"))
			return
		}
		if err := fn(room); err != nil {
			log.Debug().Err(err).Str("room", room).Msg("[chat] room action")
		}
		a.refresh()
	}
}

func (a *chatApp) enter() {
	a.ui.ShowChat()
	if err := a.cli.Start(a.ctx); err != nil {
		a.ui.Error("Cannot open room", err)
	}
	a.refresh()
}

func (a *chatApp) refresh() {
	room := a.cli.CurrentRoom()
	a.ui.Chat.SetRooms(a.cli.Rooms(), room)
	a.ui.Chat.SetAccount(a.cli.Username(), a.cli.OwnsRoom(room))
}
