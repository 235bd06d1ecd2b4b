package main

import (
	"context"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineConfig(maxSessions int) goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Session.MaxSessionsPerUser = maxSessions
	return cfg
}

func TestOpenSessionStoreMemory(t *testing.T) {
	store, closeStore := openSessionStore(&config.Config{SessionStore: "memory"}, engineConfig(2), nil)
	defer closeStore()
	require.IsType(t, &session.MemoryStore{}, store)

	ctx := context.Background()
	for _, jti := range []string{"a", "b", "c"} {
		_, err := store.Add(ctx, "u1", jti)
		require.NoError(t, err)
	}
	n, err := store.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store, closeStore := openSessionStore(&config.Config{SessionStore: "redis"}, engineConfig(5), rdb)
	defer closeStore()
	require.IsType(t, &session.Store{}, store)

	_, err := store.Add(context.Background(), "u1", "a")
	require.NoError(t, err)
	assert.True(t, mr.Exists("gs:refresh:u1"))
}

func TestNewLimiterSelection(t *testing.T) {
	assert.Nil(t, newLimiter(&config.Config{RateLimitEnabled: false}, nil))

	local := newLimiter(&config.Config{RateLimitEnabled: true, RateLimitBackend: "local"}, nil)
	require.IsType(t, &rate.Local{}, local)

	p := rate.Policy{Name: "sign_in", Requests: 1, Window: time.Minute}
	d, err := local.Allow(context.Background(), p, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = local.Allow(context.Background(), p, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.IsType(t, &rate.Redis{}, newLimiter(&config.Config{RateLimitEnabled: true, RateLimitBackend: "redis"}, rdb))
}
