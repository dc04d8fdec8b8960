package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server.Addr, cfg.Server.Addr)
	assert.Equal(t, 2, cfg.TMDB.MaxRetries)
	assert.Equal(t, 8*time.Second, cfg.TMDB.AttemptTimeout)
	assert.Equal(t, "memory", cfg.PayloadCache.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
catalog:
  base_url: "https://catalog.example.com"
  list_ttl: 2m
tmdb:
  max_retries: 4
  base_delay: 100ms
search:
  debounce: 150ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "https://catalog.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.ListTTL)
	assert.Equal(t, 4, cfg.TMDB.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.TMDB.BaseDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)
	// untouched keys keep their defaults
	assert.Equal(t, 8*time.Second, cfg.TMDB.AttemptTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "secret")
	t.Setenv("MOVIEVERSE_API_BASE", "https://api.example.com/")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.TMDB.APIKey)
	assert.Equal(t, "https://api.example.com", cfg.Catalog.BaseURL)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
payload_cache:
  backend: "memcached"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestLoad_RedisBackendRequiresAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	path := writeConfig(t, `
payload_cache:
  backend: "redis"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_PlayerSources(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Player.MediaHosts)
	assert.False(t, cfg.Player.AllowPrivateMedia)

	cfg, err = Load(writeConfig(t, `
player:
  media_hosts: ["cdn.example.com", "media.example.org"]
  allow_private_media: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"cdn.example.com", "media.example.org"}, cfg.Player.MediaHosts)
	assert.True(t, cfg.Player.AllowPrivateMedia)
}
