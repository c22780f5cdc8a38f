package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"SERVER_HOST", "SERVER_PORT", "API_BASE_URL", "API_TIMEOUT",
	"STORAGE_DRIVER", "STORAGE_DIR", "STORAGE_PROFILE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"LOGIN_RATE_LIMIT", "LOGIN_RATE_WINDOW", "LOG_LEVEL", "NOTIFY_DEFAULT_MS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8081", cfg.Server.Addr())
	assert.Equal(t, "http://localhost:5000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.Notify.Default)
	assert.Equal(t, 10, cfg.Login.Limit)
}

func TestNew_FromEnvFile(t *testing.T) {
	clearEnv(t)
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"API_BASE_URL=https://api.example.com/v1\n"+
			"API_TIMEOUT=2s\n"+
			"STORAGE_DRIVER=Redis\n"+
			"REDIS_DB=3\n"+
			"LOG_LEVEL=debug\n"+
			"NOTIFY_DEFAULT_MS=500\n",
	), 0o600))

	cfg, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Notify.Default)
}

func TestNew_Invalid(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":    "eighty",
		"API_TIMEOUT":    "soon",
		"STORAGE_DRIVER": "sqlite",
		"LOG_LEVEL":      "loud",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := New(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config.New")
		})
	}
}

func TestServerConfig_Override(t *testing.T) {
	s := ServerConfig{Host: "localhost", Port: 8081}

	require.NoError(t, s.Override(":9000"))
	assert.Equal(t, "localhost:9000", s.Addr())

	require.NoError(t, s.Override("0.0.0.0:9001"))
	assert.Equal(t, "0.0.0.0:9001", s.Addr())

	assert.Error(t, s.Override("nope"))
	assert.Error(t, s.Override(":0"))
}
