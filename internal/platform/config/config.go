package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIdentityKey is the key resolved at startup when none is configured.
const DefaultIdentityKey = "0294c479f762f6baa97fbcd4393564c1d7bd8336ebd15928135bbcf575cd1a71a1"

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `yaml:"addr"`
	// IdentityKey is the primary identity resolved once at startup.
	IdentityKey string `yaml:"identity_key"`
	// Ordering is "issued" (discard stale search results) or "arrival"
	// (apply completions in arrival order).
	Ordering     string        `yaml:"ordering"`
	UHRPGateway  string        `yaml:"uhrp_gateway"`
	ShutdownWait time.Duration `yaml:"shutdown_wait"`

	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Log        LogConfig        `yaml:"log"`
}

// DiscoveryConfig points at the identity discovery service.
type DiscoveryConfig struct {
	// BaseURL of the discovery API. Empty selects the built-in demo fixtures.
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// RedisConfig configures the optional discovery response cache.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RateLimitConfig bounds API requests per client IP. Zero requests disables
// limiting.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// NormalizerConfig extends the certificate type table and sets the avatars
// shown when a record carries none. Keys and values name identity kinds
// (x, discord, email, phone, identi, registrant, anyone, self, unknown).
type NormalizerConfig struct {
	// Types maps deployment certificate type identifiers onto kinds.
	Types map[string]string `yaml:"types"`
	// FallbackAvatars maps kinds onto avatar URLs.
	FallbackAvatars map[string]string `yaml:"fallback_avatars"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Server {
	return Server{
		Addr:         ":8080",
		IdentityKey:  DefaultIdentityKey,
		Ordering:     "issued",
		UHRPGateway:  "https://uhrp.babbage.systems/",
		ShutdownWait: 10 * time.Second,
		Discovery: DiscoveryConfig{
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 3,
		},
		Redis: RedisConfig{
			CacheTTL:     5 * time.Minute,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Requests: 120,
			Window:   time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// FromEnv builds a Server config from defaults, an optional YAML file named by
// IDLENS_CONFIG, and environment variables, in increasing precedence.
func FromEnv() (Server, error) {
	return Load("")
}

// Load is FromEnv with an explicit YAML file; an empty path falls back to
// IDLENS_CONFIG.
func Load(path string) (Server, error) {
	cfg := Defaults()
	if path == "" {
		path = os.Getenv("IDLENS_CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Server{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Server{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays YAML settings onto cfg. Keys absent from the file keep
// their current values.
func (cfg *Server) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (cfg *Server) applyEnv(getenv func(string) string) error {
	setString(getenv, "IDLENS_ADDR", &cfg.Addr)
	setString(getenv, "IDLENS_IDENTITY_KEY", &cfg.IdentityKey)
	setString(getenv, "IDLENS_ORDERING", &cfg.Ordering)
	setString(getenv, "IDLENS_UHRP_GATEWAY", &cfg.UHRPGateway)
	setString(getenv, "IDLENS_DISCOVERY_URL", &cfg.Discovery.BaseURL)
	setString(getenv, "IDLENS_REDIS_URL", &cfg.Redis.URL)
	setString(getenv, "IDLENS_LOG_LEVEL", &cfg.Log.Level)
	setString(getenv, "IDLENS_LOG_FORMAT", &cfg.Log.Format)

	if err := setDuration(getenv, "IDLENS_DISCOVERY_TIMEOUT", &cfg.Discovery.Timeout); err != nil {
		return err
	}
	if err := setDuration(getenv, "IDLENS_CACHE_TTL", &cfg.Redis.CacheTTL); err != nil {
		return err
	}
	if err := setDuration(getenv, "IDLENS_RATE_WINDOW", &cfg.RateLimit.Window); err != nil {
		return err
	}
	if err := setInt(getenv, "IDLENS_RATE_LIMIT", &cfg.RateLimit.Requests); err != nil {
		return err
	}
	if err := setInt(getenv, "IDLENS_BREAKER_FAILURES", &cfg.Discovery.FailureThreshold); err != nil {
		return err
	}
	return setInt(getenv, "IDLENS_BREAKER_SUCCESSES", &cfg.Discovery.SuccessThreshold)
}

// Validate rejects settings the service cannot start with.
func (cfg Server) Validate() error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if cfg.IdentityKey == "" {
		return fmt.Errorf("identity key is required")
	}
	switch cfg.Ordering {
	case "issued", "arrival":
	default:
		return fmt.Errorf("ordering must be \"issued\" or \"arrival\", got %q", cfg.Ordering)
	}
	if cfg.Discovery.Timeout <= 0 {
		return fmt.Errorf("discovery timeout must be positive")
	}
	if cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	return nil
}

// DemoMode reports whether discovery is served from built-in fixtures.
func (cfg Server) DemoMode() bool {
	return cfg.Discovery.BaseURL == ""
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(getenv func(string) string, key string, dst *time.Duration) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
