package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 30, cfg.RateLimit.SearchPerWindow)
	assert.Equal(t, 20, cfg.RateLimit.FetchPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 8000, cfg.Fetch.MaxChars)
	assert.Equal(t, "uddg", cfg.Search.RedirectParam)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
search:
  region: de-de
  timeout: 10s
  ad_classes: [sponsored]
fetch:
  extract_mode: markdown
  max_chars: 4000
rate_limit:
  search_per_window: 5
`), 0o600))

	t.Setenv("SEARCHGATE_HOST", "127.0.0.1")
	t.Setenv("SEARCHGATE_MAX_CHARS", "1234")
	t.Setenv("SEARCHGATE_AD_URL_MARKERS", "/y.js, /aclk ,")
	t.Setenv("SEARCHGATE_ALLOW_PRIVATE_NETWORKS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "de-de", cfg.Search.Region)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, []string{"sponsored"}, cfg.Search.AdClasses)
	assert.Equal(t, []string{"/y.js", "/aclk"}, cfg.Search.AdURLMarkers)
	assert.Equal(t, "markdown", cfg.Fetch.ExtractMode)
	assert.Equal(t, 1234, cfg.Fetch.MaxChars)
	assert.True(t, cfg.Fetch.AllowPrivateNetworks)
	assert.Equal(t, 5, cfg.RateLimit.SearchPerWindow)
	assert.Equal(t, 20, cfg.RateLimit.FetchPerWindow)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SEARCHGATE_FETCH_RATE_LIMIT=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SEARCHGATE_FETCH_RATE_LIMIT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RateLimit.FetchPerWindow)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad int", env: map[string]string{"SEARCHGATE_PORT": "eighty"}},
		{name: "bad duration", env: map[string]string{"SEARCHGATE_FETCH_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"SEARCHGATE_ALLOW_PRIVATE_NETWORKS": "maybe"}},
		{name: "zero ceiling", env: map[string]string{"SEARCHGATE_SEARCH_RATE_LIMIT": "0"}},
		{name: "unknown mode", env: map[string]string{"SEARCHGATE_EXTRACT_MODE": "pdf"}},
		{name: "unknown backend", env: map[string]string{"SEARCHGATE_FETCH_BACKEND": "lynx"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
