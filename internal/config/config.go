// Package config loads client settings from an optional YAML file overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"roomsync/internal/utils"
)

const (
	StoreSQLite = "sqlite"
	StorePebble = "pebble"
	StoreMemory = "memory"
)

type Config struct {
	ChatBaseURL     string        `yaml:"chat_base_url"`
	AccountBaseURL  string        `yaml:"account_base_url"`
	Env             string        `yaml:"env"`
	DataDir         string        `yaml:"data_dir"`
	Store           string        `yaml:"store"`
	DefaultRoom     string        `yaml:"default_room"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ErrorInterval   time.Duration `yaml:"error_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	LogPort         int           `yaml:"log_port"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ThemeDir        string        `yaml:"theme_dir"`
	ThemeName       string        `yaml:"theme"`
	RegistryMaxSize int           `yaml:"registry_max_size"`
}

func Default() Config {
	return Config{
		ChatBaseURL:     "http://localhost:8080",
		AccountBaseURL:  "http://localhost:8081",
		Env:             "dev",
		DataDir:         defaultDataDir(),
		Store:           StoreSQLite,
		PollInterval:    1500 * time.Millisecond,
		ErrorInterval:   3000 * time.Millisecond,
		RequestTimeout:  8 * time.Second,
		RateLimit:       10,
		RateBurst:       5,
		ThemeName:       "default",
		RegistryMaxSize: 50,
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/roomsync"
	}
	return ".roomsync"
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func getenvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n >= 0 {
		return n
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return f
	}
	return def
}

// Load reads path (if non-empty) and then applies ROOMSYNC_* environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return utils.ConfigError("read config").Wrap(err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return utils.ConfigError("parse config").WithDetails(path).Wrap(err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ChatBaseURL = getenv("ROOMSYNC_CHAT_URL", cfg.ChatBaseURL)
	cfg.AccountBaseURL = getenv("ROOMSYNC_ACCOUNT_URL", cfg.AccountBaseURL)
	cfg.Env = getenv("ROOMSYNC_ENV", cfg.Env)
	cfg.DataDir = getenv("ROOMSYNC_DATA_DIR", cfg.DataDir)
	cfg.Store = getenv("ROOMSYNC_STORE", cfg.Store)
	cfg.DefaultRoom = getenv("ROOMSYNC_ROOM", cfg.DefaultRoom)
	cfg.PollInterval = getenvDuration("ROOMSYNC_POLL_INTERVAL", cfg.PollInterval)
	cfg.ErrorInterval = getenvDuration("ROOMSYNC_ERROR_INTERVAL", cfg.ErrorInterval)
	cfg.RequestTimeout = getenvDuration("ROOMSYNC_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RateLimit = getenvFloat("ROOMSYNC_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getenvInt("ROOMSYNC_RATE_BURST", cfg.RateBurst)
	cfg.LogPort = getenvInt("ROOMSYNC_LOG_PORT", cfg.LogPort)
	cfg.MetricsAddr = getenv("ROOMSYNC_METRICS_ADDR", cfg.MetricsAddr)
	cfg.ThemeDir = getenv("ROOMSYNC_THEME_DIR", cfg.ThemeDir)
	cfg.ThemeName = getenv("ROOMSYNC_THEME", cfg.ThemeName)
}

func Validate(cfg Config) error {
	for name, raw := range map[string]string{"chat_base_url": cfg.ChatBaseURL, "account_base_url": cfg.AccountBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return utils.ConfigError("invalid url").WithDetails(fmt.Sprintf("%s=%q", name, raw))
		}
	}
	switch cfg.Store {
	case StoreSQLite, StorePebble:
		if cfg.DataDir == "" {
			return utils.ConfigError("data_dir must not be empty")
		}
	case StoreMemory:
	default:
		return utils.ConfigError("unknown store").WithDetails(cfg.Store)
	}
	if cfg.PollInterval <= 0 || cfg.ErrorInterval <= 0 || cfg.RequestTimeout <= 0 {
		return utils.ConfigError("intervals must be positive")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return utils.ConfigError("rate_burst must be at least 1 when rate_limit is set")
	}
	if cfg.LogPort < 0 || cfg.LogPort > 65535 {
		return utils.ConfigError("log_port out of range")
	}
	if cfg.RegistryMaxSize < 1 {
		return utils.ConfigError("registry_max_size must be at least 1")
	}
	return nil
}
