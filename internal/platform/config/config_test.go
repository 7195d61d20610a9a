package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DefaultIdentityKey, cfg.IdentityKey)
	assert.Equal(t, "issued", cfg.Ordering)
	assert.True(t, cfg.DemoMode())
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides strings, durations and ints", func(t *testing.T) {
		cfg := Defaults()
		err := cfg.applyEnv(envOf(map[string]string{
			"IDLENS_ADDR":              ":9090",
			"IDLENS_DISCOVERY_URL":     "https://discovery.example",
			"IDLENS_DISCOVERY_TIMEOUT": "2s",
			"IDLENS_BREAKER_FAILURES":  "7",
			"IDLENS_ORDERING":          "arrival",
			"IDLENS_RATE_LIMIT":        "30",
			"IDLENS_RATE_WINDOW":       "10s",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 2*time.Second, cfg.Discovery.Timeout)
		assert.Equal(t, 7, cfg.Discovery.FailureThreshold)
		assert.Equal(t, "arrival", cfg.Ordering)
		assert.Equal(t, 30, cfg.RateLimit.Requests)
		assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
		assert.False(t, cfg.DemoMode())
	})

	t.Run("bad duration is reported", func(t *testing.T) {
		cfg := Defaults()
		err := cfg.applyEnv(envOf(map[string]string{"IDLENS_CACHE_TTL": "soon"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "IDLENS_CACHE_TTL")
	})

	t.Run("bad int is reported", func(t *testing.T) {
		cfg := Defaults()
		err := cfg.applyEnv(envOf(map[string]string{"IDLENS_BREAKER_SUCCESSES": "many"}))
		require.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idlens.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7070"
ordering: arrival
discovery:
  base_url: https://discovery.example
  timeout: 3s
redis:
  url: redis://localhost:6379/0
rate_limit:
  requests: 0
`), 0o600))

	cfg := Defaults()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "arrival", cfg.Ordering)
	assert.Equal(t, 3*time.Second, cfg.Discovery.Timeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 0, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	// untouched keys keep defaults
	assert.Equal(t, DefaultIdentityKey, cfg.IdentityKey)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)

	t.Run("missing file", func(t *testing.T) {
		cfg := Defaults()
		assert.Error(t, cfg.LoadFile(filepath.Join(dir, "nope.yml")))
	})
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Ordering = "random"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.IdentityKey = ""
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Discovery.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.RateLimit.Window = 0
	assert.Error(t, cfg.Validate())
	cfg.RateLimit.Requests = 0
	assert.NoError(t, cfg.Validate(), "disabled limit ignores window")
}
