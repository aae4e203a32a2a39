package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LINKARR_CONFIG",
		"LINKARR_LISTEN_ADDR",
		"DEFAULT_DIR",
		"LINKARR_DEFAULT_DIR",
		"LINKARR_LOG_LEVEL",
		"LINKARR_STATIC_DIR",
		"LINKARR_HIDE_SYSTEM_DIRS",
		"LINKARR_COMPLETION_GRACE",
		"LINKARR_PING_INTERVAL",
		"LINKARR_WATCH_DEBOUNCE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkarr.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad_Defaults verifies the defaults when nothing is configured.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "/data", cfg.DefaultDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.StaticDir)
	assert.False(t, cfg.HideSystemDirs)
	assert.Equal(t, time.Second, cfg.CompletionGrace)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
}

// TestLoad_MissingFile verifies a missing config file is not an error.
func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestLoad_File verifies values from the TOML file override the defaults.
func TestLoad_File(t *testing.T) {
	clearEnv(t)
	static := t.TempDir()

	path := writeConfig(t, `
listen_addr = "127.0.0.1:9000"
default_dir = "/mnt/media"
log_level = "debug"
static_dir = "`+static+`"
hide_system_dirs = true
completion_grace = "250ms"
ping_interval = "10s"
watch_debounce = "1s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "/mnt/media", cfg.DefaultDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, static, cfg.StaticDir)
	assert.True(t, cfg.HideSystemDirs)
	assert.Equal(t, 250*time.Millisecond, cfg.CompletionGrace)
	assert.Equal(t, 10*time.Second, cfg.PingInterval)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
}

// TestLoad_ConfigFromEnvPath verifies LINKARR_CONFIG is used when no path is given.
func TestLoad_ConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINKARR_CONFIG", writeConfig(t, `default_dir = "/srv"`))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv", cfg.DefaultDir)
}

// TestLoad_EnvOverridesFile verifies environment variables win over the file.
func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
listen_addr = ":7000"
default_dir = "/from-file"
`)
	t.Setenv("LINKARR_LISTEN_ADDR", ":7001")
	t.Setenv("DEFAULT_DIR", "/from-legacy-env")
	t.Setenv("LINKARR_HIDE_SYSTEM_DIRS", "true")
	t.Setenv("LINKARR_COMPLETION_GRACE", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.ListenAddr)
	assert.Equal(t, "/from-legacy-env", cfg.DefaultDir)
	assert.True(t, cfg.HideSystemDirs)
	assert.Equal(t, 2*time.Second, cfg.CompletionGrace)

	t.Setenv("LINKARR_DEFAULT_DIR", "/from-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.DefaultDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "log level", env: map[string]string{"LINKARR_LOG_LEVEL": "chatty"}},
		{name: "duration syntax", env: map[string]string{"LINKARR_PING_INTERVAL": "soon"}},
		{name: "negative grace", env: map[string]string{"LINKARR_COMPLETION_GRACE": "-1s"}},
		{name: "bool syntax", env: map[string]string{"LINKARR_HIDE_SYSTEM_DIRS": "maybe"}},
		{name: "missing static dir", env: map[string]string{"LINKARR_STATIC_DIR": "/definitely/not/here"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, `listen_addr = `))
	assert.Error(t, err)
}

func TestValidate_EmptyListenAddr(t *testing.T) {
	cfg := Default()
	cfg.ListenAddr = ""
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ListenAddr")
}
