package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, env, body string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", env)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config."+env+".yaml"), []byte(body), 0o644))
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("CHAT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, "0123456789abcdef", cfg.Secret)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.WS.PingPeriod)
	assert.Equal(t, 32, cfg.WS.SendBuffer)
	assert.False(t, cfg.Relay.NotifyUnavailable)
	require.Len(t, cfg.RTC.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.RTC.ICEServers[0].URLs)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	writeConfig(t, "test", `
mode: debug
port: 9000
ws:
  send_buffer: 4
  rate_limit: 3
relay:
  notify_unavailable: true
rtc:
  ice_servers:
    - urls: ["turn:turn.example.com:3478"]
      username: u
      credential: p
`)
	t.Setenv("CHAT_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9100, cfg.Port, "env wins over file")
	assert.Equal(t, 4, cfg.WS.SendBuffer)
	assert.Equal(t, 3, cfg.WS.RateLimit)
	assert.Equal(t, time.Second, cfg.WS.RateInterval)
	assert.True(t, cfg.Relay.NotifyUnavailable)
	require.Len(t, cfg.RTC.ICEServers, 1)
	assert.Equal(t, "u", cfg.RTC.ICEServers[0].Username)
}

func TestLoadRejectsPongShorterThanPing(t *testing.T) {
	writeConfig(t, "bad", `
ws:
  ping_period: 30s
  pong_wait: 10s
`)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsDefaultSecretInRelease(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInsecureSecret)

	t.Setenv("CHAT_SECRET", "")
	_, err = Load()
	assert.ErrorIs(t, err, ErrInsecureSecret)

	t.Setenv("CHAT_MODE", "debug")
	cfg, err := Load()
	require.NoError(t, err, "debug mode may use the built-in secret")
	assert.Equal(t, "debug", cfg.Mode)
}

func TestApplyLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	ApplyLogLevel("WARN")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	ApplyLogLevel("nonsense")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
