package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_Expiry(t *testing.T) {
	cache, err := OpenResponseCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	defer cache.Close()

	now := time.Unix(1_000, 0)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set("/api/movies?page=1", []byte(`{"results":[]}`), time.Minute))
	body, ok := cache.Get("/api/movies?page=1")
	require.True(t, ok)
	assert.Equal(t, `{"results":[]}`, string(body))

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("/api/movies?page=1")
	assert.False(t, ok)
}

func TestResponseCache_Sweep(t *testing.T) {
	cache, err := OpenResponseCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	defer cache.Close()

	now := time.Unix(1_000, 0)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set("a", []byte("1"), time.Second))
	require.NoError(t, cache.Set("b", []byte("2"), time.Hour))
	now = now.Add(time.Minute)

	n, err := cache.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := cache.Get("b")
	assert.True(t, ok)
}

func TestResponseCache_RejectsZeroTTL(t *testing.T) {
	cache, err := OpenResponseCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	defer cache.Close()

	assert.Error(t, cache.Set("a", []byte("1"), 0))
}
