package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  SessionStore
	users  UserDirectory
	log    zerolog.Logger
	now    func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		log:    zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the default session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the Redis-backed store, for example with a
// session.MemoryStore. Its cap and TTL are the store's own.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.store = store
	return b
}

// WithUserDirectory sets the account directory. Required.
func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.log = l
	return b
}

// WithClock overrides the clock used for token timestamps and session scores.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user directory required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		store = session.NewStore(b.redis, session.Config{
			Prefix:      cfg.Session.RedisPrefix,
			MaxSessions: cfg.Session.MaxSessionsPerUser,
			TTL:         cfg.JWT.RefreshTTL,
			LockTimeout: cfg.Session.LockTimeout,
			LockLease:   cfg.Session.LockLease,
			Now:         now,
		})
	}

	// -------- HASHER / CODEC --------
	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	}, password.WithLogger(b.log))
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		sessions: store,
		hasher:   ph,
		codec:    jm,
		metrics:  NewMetrics(cfg.Metrics),
		log:      b.log,
	}
	engine.flow = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}

func (e *Engine) flowDeps() flows.Deps {
	return flows.Deps{
		SignUp: flows.SignUpDeps{
			Hasher:     e.hasher,
			CreateUser: e.createUser,
			IsConflict: isConflict,
			MintPair:   e.codec.RefreshPair,
			Sessions:   e.sessions,
		},
		SignIn: flows.SignInDeps{
			FindByIdentifier: e.findByIdentifier,
			UserNotFound:     ErrUserNotFound,
			Hasher:           e.hasher,
			UpgradeOnLogin:   e.config.Password.UpgradeOnLogin,
			SetPasswordHash:  e.users.SetPasswordHash,
			Warn: func(msg string, err error) {
				e.log.Warn().Err(err).Msg(msg)
			},
			MintPair: e.codec.RefreshPair,
			Sessions: e.sessions,
		},
		Refresh: flows.RefreshDeps{
			Decode:   e.codec.Decode,
			MintPair: e.codec.RefreshPair,
			Sessions: e.sessions,
		},
		Logout: flows.LogoutDeps{
			Decode:   e.codec.Decode,
			Sessions: e.sessions,
		},
		ChangePassword: flows.ChangePasswordDeps{
			Decode:          e.codec.Decode,
			Sessions:        e.sessions,
			FindByID:        e.findByID,
			UserNotFound:    ErrUserNotFound,
			Hasher:          e.hasher,
			SetPasswordHash: e.users.SetPasswordHash,
		},
	}
}
