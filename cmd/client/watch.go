package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"roomsync/internal/client"
	"roomsync/internal/models"
	"roomsync/internal/utils"
)

var flagPassword string

var watchCmd = &cobra.Command{
	Use:   "watch <room>",
	Short: "Poll a room and print new messages to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagPassword, "password", "", "room password for this session")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLogs := setupLogging(cfg, os.Stderr)
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := &printView{out: os.Stdout, now: time.Now}
	cli, err := client.New(ctx, cfg, client.Deps{
		View:     view,
		Prompter: &terminalPrompter{in: os.Stdin, out: os.Stderr},
		Metrics:  setupMetrics(ctx, cfg),
	})
	if err != nil {
		return err
	}
	defer cli.Shutdown()

	if flagToken != "" {
		if err := cli.UseToken(ctx, flagUser, flagToken); err != nil {
			return err
		}
	}
	room, err := utils.NormalizeRoomID(args[0])
	if err != nil {
		return err
	}
	if flagPassword != "" {
		cli.Registry.SetPassword(room, flagPassword)
	}
	if err := cli.Coord.SwitchRoom(ctx, room); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// printView is a MessageView for a plain terminal: it is always at the
// bottom and prints each message once.
type printView struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var _ client.MessageView = (*printView)(nil)

func (v *printView) print(msgs []models.Message) {
	now := v.now()
	for _, m := range msgs {
		stamp := "--:--"
		if ts, ok := m.Timestamp(); ok {
			stamp = utils.FormatPrettyTime(ts, now)
		}
		fmt.Fprintf(v.out, "[%s] %s: %s\n", stamp, m.DisplayAuthor(), m.Body)
	}
}

func (v *printView) ScrollMetrics() client.ScrollMetrics { return client.ScrollMetrics{} }

func (v *printView) Reset(msgs []models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(msgs) > 0 {
		fmt.Fprintln(v.out, "--- history ---")
	}
	v.print(msgs)
}

func (v *printView) Append(msgs []models.Message, _ int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.print(msgs)
}

func (v *printView) ScrollToBottom()              {}
func (v *printView) SetNewMessagesIndicator(bool) {}
func (v *printView) RefreshTimestamps()           {}
func (v *printView) Clear()                       {}

// terminalPrompter asks for a room password on the controlling terminal.
type terminalPrompter struct {
	mu  sync.Mutex
	in  *os.File
	out io.Writer
}

func (p *terminalPrompter) PromptPassword(ctx context.Context, room string, purpose models.PromptPurpose) (*models.PasswordAnswer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "Password for %s (%s): ", room, purpose)

	var password string
	if term.IsTerminal(int(p.in.Fd())) {
		b, err := term.ReadPassword(int(p.in.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return nil, err
		}
		password = string(b)
	} else {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return nil, nil
	}
	return &models.PasswordAnswer{Password: password}, nil
}
