// Command sessiond serves the session engine over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/rate"
	otelexport "github.com/MrEthical07/goSession/metrics/export/otel"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/userdir/memory"
	"github.com/MrEthical07/goSession/userdir/postgres"
	"github.com/MrEthical07/goSession/userdir/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const serviceName = "sessiond"

func main() {
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("sessiond exited")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", serviceName).Logger()
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	var rdb redis.UniversalClient
	if cfg.NeedsRedis() {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		rdb = client
	}

	users, closeUsers, err := openUserDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeUsers()

	sessions, closeSessions := openSessionStore(cfg, engineCfg, rdb)
	defer closeSessions()

	engine, err := goSession.New().
		WithConfig(engineCfg).
		WithSessionStore(sessions).
		WithUserDirectory(users).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	apiCfg := httpapi.Config{
		RefreshTTL:   engineCfg.JWT.RefreshTTL,
		CookieSecure: cfg.CookieSecure,
		Limiter:      newLimiter(cfg, rdb),
		Logger:       logger,
	}
	if cfg.MetricsEnabled {
		h, err := promexport.Handler(engine)
		if err != nil {
			return fmt.Errorf("prometheus: %w", err)
		}
		apiCfg.Metrics = h

		if cfg.OTLPEndpoint != "" {
			shutdown, err := startOTLP(ctx, cfg.OTLPEndpoint, engine)
			if err != nil {
				return err
			}
			defer shutdown()
			logger.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("pushing metrics over OTLP")
		}
	}

	e := httpapi.New(engine, apiCfg).Echo()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("user_store", cfg.UserStore).
			Str("session_store", cfg.SessionStore).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("stopped")
	return nil
}

func openUserDirectory(ctx context.Context, cfg *config.Config) (goSession.UserDirectory, func(), error) {
	switch cfg.UserStore {
	case "memory":
		return memory.New(), func() {}, nil
	case "sqlite":
		dir, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		if err := dir.ApplyMigrations(); err != nil {
			_ = dir.Close()
			return nil, nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		return dir, func() { _ = dir.Close() }, nil
	case "postgres":
		if err := postgres.ApplyMigrations(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
	}
}

// openSessionStore returns the Redis registry, or the in-process one when
// SESSION_STORE=memory. The memory store is only correct for a single replica.
func openSessionStore(cfg *config.Config, engineCfg goSession.Config, rdb redis.UniversalClient) (goSession.SessionStore, func()) {
	sc := session.Config{
		Prefix:      engineCfg.Session.RedisPrefix,
		MaxSessions: engineCfg.Session.MaxSessionsPerUser,
		TTL:         engineCfg.JWT.RefreshTTL,
		LockTimeout: engineCfg.Session.LockTimeout,
		LockLease:   engineCfg.Session.LockLease,
	}
	if cfg.SessionStore == "memory" {
		store := session.NewMemoryStore(sc)
		return store, store.Close
	}
	return session.NewStore(rdb, sc), func() {}
}

// newLimiter returns nil when rate limiting is disabled.
func newLimiter(cfg *config.Config, rdb redis.UniversalClient) rate.Limiter {
	if !cfg.RateLimitEnabled {
		return nil
	}
	if cfg.RateLimitBackend == "local" {
		return rate.NewLocal()
	}
	return rate.NewRedis(rdb, cfg.RedisPrefix)
}

func startOTLP(ctx context.Context, endpoint string, engine *goSession.Engine) (func(), error) {
	provider, err := otelexport.NewMeterProvider(ctx, endpoint, serviceName, 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("otlp: %w", err)
	}
	exp, err := otelexport.NewExporter(provider.Meter(serviceName), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("otel exporter: %w", err)
	}
	return func() {
		_ = exp.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}
