package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"roomsync/internal/config"
	"roomsync/internal/metrics"
	"roomsync/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:          "roomsync",
	Short:        "Terminal client for password-protected polling chat rooms",
	RunE:         runChat,
	SilenceUsage: true,
}

var (
	flagConfig      string
	flagChatURL     string
	flagAccountURL  string
	flagStore       string
	flagDataDir     string
	flagEnv         string
	flagLogPort     int
	flagMetricsAddr string
	flagRoom        string
	flagUser        string
	flagToken       string
	flagAdminKey    string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", defaultConfigPath(), "YAML config file (missing file is ignored)")
	flags.StringVar(&flagChatURL, "chat-url", "", "chat service base URL")
	flags.StringVar(&flagAccountURL, "account-url", "", "account service base URL")
	flags.StringVar(&flagStore, "store", "", "local state backend: sqlite, pebble or memory")
	flags.StringVar(&flagDataDir, "data-dir", "", "directory for local state")
	flags.StringVar(&flagEnv, "env", "", "dev or prod; dev logs at debug level")
	flags.IntVar(&flagLogPort, "log-port", 0, "mirror logs to TCP clients on this port (0 disables)")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&flagRoom, "room", "", "room to enter when none was saved")
	flags.StringVar(&flagUser, "user", "", "account username for --token")
	flags.StringVar(&flagToken, "token", "", "resume an account session with this token")

	chatCmd.Flags().StringVar(&flagAdminKey, "admin-key", os.Getenv("ROOMSYNC_ADMIN_KEY"), "admin key sent when unclaiming")

	rootCmd.AddCommand(chatCmd, watchCmd, roomsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "roomsync.yaml"
	}
	return filepath.Join(dir, "roomsync", "config.yaml")
}

// loadConfig reads the file and environment, then applies flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("chat-url", func() { cfg.ChatBaseURL = flagChatURL })
	set("account-url", func() { cfg.AccountBaseURL = flagAccountURL })
	set("store", func() { cfg.Store = flagStore })
	set("data-dir", func() { cfg.DataDir = flagDataDir })
	set("env", func() { cfg.Env = flagEnv })
	set("log-port", func() { cfg.LogPort = flagLogPort })
	set("metrics-addr", func() { cfg.MetricsAddr = flagMetricsAddr })
	set("room", func() { cfg.DefaultRoom = flagRoom })

	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupLogging points the global logger at out, plus the TCP mirror when a
// log port is configured. The returned func releases both.
func setupLogging(cfg config.Config, out io.Writer) func() {
	var extra []io.Writer
	var remote *utils.RemoteLogger
	if cfg.LogPort > 0 {
		rl, err := utils.NewRemoteLogger(cfg.LogPort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log port %d unavailable: %v\n", cfg.LogPort, err)
		} else {
			remote = rl
			extra = append(extra, rl)
		}
	}
	utils.InitLogger(cfg.Env, out, extra...)
	return func() {
		if remote != nil {
			_ = remote.Close()
		}
	}
}

// setupMetrics registers the client collectors and serves them when an
// address is configured.
func setupMetrics(ctx context.Context, cfg config.Config) *metrics.Metrics {
	if cfg.MetricsAddr == "" {
		return metrics.Nop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)
	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
			log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("[metrics] server stopped")
		}
	}()
	return m
}

// openLogFile is where the TUI logs, since it owns the terminal.
func openLogFile(cfg config.Config) (*os.File, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(cfg.DataDir, "roomsync.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
