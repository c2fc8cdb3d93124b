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
	dir := t.TempDir()
	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8090", cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Poll.EventsInterval)
	assert.Equal(t, 10*time.Second, cfg.Poll.MapInterval)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)
	assert.Equal(t, 500, cfg.List.Batch)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, dir, cfg.Dir)
	assert.NotEmpty(t, cfg.Geocoder.UserAgent)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "backend_url: https://pb.example.com/\npoll:\n  events_interval: 7s\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "https://pb.example.com", cfg.BackendURL)
	assert.Equal(t, 7*time.Second, cfg.Poll.EventsInterval)
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv("EVENTFLOW_BACKEND_URL", "http://10.0.0.2:8090")
	t.Setenv("EVENTFLOW_POLL_MAP_INTERVAL", "6s")
	t.Setenv("EVENTFLOW_FETCH_CONCURRENCY", "3")
	cfg, err = Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8090", cfg.BackendURL)
	assert.Equal(t, 6*time.Second, cfg.Poll.MapInterval)
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir())
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"EVENTFLOW_BACKEND_URL":         "pb.example.com",
		"EVENTFLOW_POLL_EVENTS_INTERVAL": "1s",
		"EVENTFLOW_POLL_MAP_INTERVAL":    "30s",
		"EVENTFLOW_FETCH_CONCURRENCY":    "0",
		"EVENTFLOW_LIST_BATCH":           "5000",
		"EVENTFLOW_LOG_LEVEL":            "loud",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			_, err := Load("", t.TempDir())
			require.Error(t, err)
		})
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "eventflow"), Dir())
}
