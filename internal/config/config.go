package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr      string        `toml:"listen_addr" validate:"required"`
	DefaultDir      string        `toml:"default_dir" validate:"required"`
	LogLevel        string        `toml:"log_level" validate:"oneof=debug info warn error"`
	StaticDir       string        `toml:"static_dir"`
	HideSystemDirs  bool          `toml:"hide_system_dirs"`
	CompletionGrace time.Duration `toml:"completion_grace" validate:"min=0s"`
	PingInterval    time.Duration `toml:"ping_interval" validate:"min=0s"`
	WatchDebounce   time.Duration `toml:"watch_debounce" validate:"min=1ms"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8000",
		DefaultDir:      "/data",
		LogLevel:        "info",
		CompletionGrace: time.Second,
		PingInterval:    30 * time.Second,
		WatchDebounce:   500 * time.Millisecond,
	}
}

// Load builds the configuration from defaults, the optional TOML file at
// path, then environment variables, and validates the result. An empty
// path falls back to LINKARR_CONFIG; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("LINKARR_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = getEnv("LINKARR_LISTEN_ADDR", cfg.ListenAddr)
	// DEFAULT_DIR is the variable the original web app read.
	cfg.DefaultDir = getEnv("DEFAULT_DIR", cfg.DefaultDir)
	cfg.DefaultDir = getEnv("LINKARR_DEFAULT_DIR", cfg.DefaultDir)
	cfg.LogLevel = getEnv("LINKARR_LOG_LEVEL", cfg.LogLevel)
	cfg.StaticDir = getEnv("LINKARR_STATIC_DIR", cfg.StaticDir)

	if v := os.Getenv("LINKARR_HIDE_SYSTEM_DIRS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LINKARR_HIDE_SYSTEM_DIRS: %w", err)
		}
		cfg.HideSystemDirs = b
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LINKARR_COMPLETION_GRACE", &cfg.CompletionGrace},
		{"LINKARR_PING_INTERVAL", &cfg.PingInterval},
		{"LINKARR_WATCH_DEBOUNCE", &cfg.WatchDebounce},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
