// Package config loads sessiond settings from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/viper"
)

// Config is the process configuration for cmd/sessiond.
type Config struct {
	HTTPAddr  string `mapstructure:"HTTP_ADDR"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	RedisURL    string `mapstructure:"REDIS_URL"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	// UserStore selects the directory backend: memory, sqlite or postgres.
	UserStore   string `mapstructure:"USER_STORE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTPrivateKey is an HMAC secret, a PEM key, or a path to a file holding either.
	JWTPrivateKey    string        `mapstructure:"JWT_PRIVATE_KEY"`
	JWTPublicKey     string        `mapstructure:"JWT_PUBLIC_KEY"`
	JWTSigningMethod string        `mapstructure:"JWT_SIGNING_METHOD"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL     time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL    time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	// SessionStore selects the session registry: redis or memory (single process only).
	SessionStore       string        `mapstructure:"SESSION_STORE"`
	MaxSessionsPerUser int           `mapstructure:"MAX_SESSIONS_PER_USER"`
	SessionLockTimeout time.Duration `mapstructure:"SESSION_LOCK_TIMEOUT"`
	SessionLockLease   time.Duration `mapstructure:"SESSION_LOCK_LEASE"`

	Argon2MemoryKB    uint32 `mapstructure:"ARGON2_MEMORY_KB"`
	Argon2Time        uint32 `mapstructure:"ARGON2_TIME"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`

	CookieSecure     bool `mapstructure:"COOKIE_SECURE"`
	MetricsEnabled   bool `mapstructure:"METRICS_ENABLED"`
	RateLimitEnabled bool `mapstructure:"RATE_LIMIT_ENABLED"`

	// RateLimitBackend is redis (shared fixed window) or local (per-process token bucket).
	RateLimitBackend string `mapstructure:"RATE_LIMIT_BACKEND"`

	// OTLPEndpoint enables OTLP/gRPC metric push when non-empty.
	OTLPEndpoint    string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads envFile (".env" when empty, ignored if missing), then the
// environment, which overrides the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_PREFIX", "gs")
	v.SetDefault("USER_STORE", "sqlite")
	v.SetDefault("DATABASE_URL", "file:gosession.db")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_SIGNING_METHOD", "hs256")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("MAX_SESSIONS_PER_USER", 5)
	v.SetDefault("SESSION_STORE", "redis")
	v.SetDefault("SESSION_LOCK_TIMEOUT", "5s")
	v.SetDefault("SESSION_LOCK_LEASE", "15s")
	v.SetDefault("ARGON2_MEMORY_KB", 65536)
	v.SetDefault("ARGON2_TIME", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_BACKEND", "redis")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.UserStore = strings.ToLower(strings.TrimSpace(cfg.UserStore))
	switch cfg.UserStore {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("config: USER_STORE must be memory, sqlite or postgres, got %q", cfg.UserStore)
	}

	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	if cfg.SessionStore != "redis" && cfg.SessionStore != "memory" {
		return nil, fmt.Errorf("config: SESSION_STORE must be redis or memory, got %q", cfg.SessionStore)
	}
	cfg.RateLimitBackend = strings.ToLower(strings.TrimSpace(cfg.RateLimitBackend))
	if cfg.RateLimitBackend != "redis" && cfg.RateLimitBackend != "local" {
		return nil, fmt.Errorf("config: RATE_LIMIT_BACKEND must be redis or local, got %q", cfg.RateLimitBackend)
	}

	if cfg.UserStore != "memory" && cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.JWTPrivateKey == "" {
		return nil, errors.New("config: JWT_PRIVATE_KEY must be set")
	}

	return &cfg, nil
}

// EngineConfig converts cfg into a validated engine configuration.
func (c *Config) EngineConfig() (goSession.Config, error) {
	priv, err := keyMaterial(c.JWTPrivateKey)
	if err != nil {
		return goSession.Config{}, fmt.Errorf("config: JWT_PRIVATE_KEY: %w", err)
	}
	pub, err := keyMaterial(c.JWTPublicKey)
	if err != nil {
		return goSession.Config{}, fmt.Errorf("config: JWT_PUBLIC_KEY: %w", err)
	}

	out := goSession.DefaultConfig()
	out.JWT.SigningMethod = strings.ToLower(c.JWTSigningMethod)
	out.JWT.PrivateKey = priv
	out.JWT.PublicKey = pub
	out.JWT.Issuer = c.JWTIssuer
	out.JWT.AccessTTL = c.JWTAccessTTL
	out.JWT.RefreshTTL = c.JWTRefreshTTL
	out.Session.RedisPrefix = c.RedisPrefix
	out.Session.MaxSessionsPerUser = c.MaxSessionsPerUser
	out.Session.LockTimeout = c.SessionLockTimeout
	out.Session.LockLease = c.SessionLockLease
	out.Password.Memory = c.Argon2MemoryKB
	out.Password.Time = c.Argon2Time
	out.Password.Parallelism = c.Argon2Parallelism
	out.Metrics.Enabled = c.MetricsEnabled
	out.Metrics.EnableLatencyHistograms = c.MetricsEnabled

	if err := out.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("config: %w", err)
	}
	return out, nil
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.SessionStore == "redis" || (c.RateLimitEnabled && c.RateLimitBackend == "redis")
}

// keyMaterial returns inline PEM or secrets as-is and reads anything that
// names an existing file.
func keyMaterial(v string) ([]byte, error) {
	if v == "" || strings.HasPrefix(strings.TrimSpace(v), "-----BEGIN") {
		return []byte(v), nil
	}
	if st, err := os.Stat(v); err == nil && !st.IsDir() {
		return os.ReadFile(v)
	}
	return []byte(v), nil
}
