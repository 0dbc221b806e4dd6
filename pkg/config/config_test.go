package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeboard/pipeboard/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server_url: https://pipeboard.example.com
canvas_id: cvs-1
api_token: secret
redis_addr: localhost:6379
log_level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://pipeboard.example.com", cfg.ServerURL)
	assert.Equal(t, "cvs-1", cfg.CanvasID)
	assert.Equal(t, "secret", cfg.APIToken)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DefaultsLogLevel(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "server_url: http://localhost:8080\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	_, err = config.Load(writeConfig(t, "server_url: [broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	cfg := config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "info", cfg.LogLevel)

	path := writeConfig(t, "server_url: http://real:9000\n")
	cfg = config.LoadOrDefault(path)
	assert.Equal(t, "http://real:9000", cfg.ServerURL)
}

func TestWebSocketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		serverURL string
		expected  string
	}{
		{name: "http", serverURL: "http://localhost:8080", expected: "ws://localhost:8080"},
		{name: "https", serverURL: "https://pipeboard.example.com", expected: "wss://pipeboard.example.com"},
		{name: "already ws", serverURL: "ws://localhost:8080", expected: "ws://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Config{ServerURL: tt.serverURL}
			assert.Equal(t, tt.expected, cfg.WebSocketURL())
		})
	}
}
