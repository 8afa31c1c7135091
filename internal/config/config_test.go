package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "12212", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.Retries)
	assert.Equal(t, 100*time.Millisecond, cfg.Queue.Interval)
	assert.Equal(t, 2*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "RESTAURANT", cfg.Ticket.Brand)
	assert.Equal(t, "tickets.print", cfg.NATS.Subject)
	assert.Empty(t, cfg.NATS.URL)
	assert.True(t, cfg.TUI.Enabled)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "12212", cfg.Server.Port)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticket-engine.yaml")
	content := `
server:
  port: "9000"
queue:
  retries: 5
monitor:
  interval: 10s
ticket:
  brand: "BAYT AL SHAWARMA"
nats:
  url: nats://localhost:4222
tui:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Queue.Retries)
	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "BAYT AL SHAWARMA", cfg.Ticket.Brand)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.False(t, cfg.TUI.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticket-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0644))

	t.Setenv("TICKET_SERVER_PORT", "9100")
	t.Setenv("TICKET_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
