package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every failed Redis round trip.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrLockTimeout is returned when a per-user lock cannot be acquired within LockTimeout.
var ErrLockTimeout = errors.New("session lock timeout")

const (
	// DefaultMaxSessions is the per-user cap applied when Config.MaxSessions is zero.
	DefaultMaxSessions = 5
	// DefaultLockTimeout bounds how long Add and RemoveAllExcept wait for their lock.
	DefaultLockTimeout = 5 * time.Second
	// DefaultLockLease bounds how long a crashed holder can keep a lock. It is
	// far above the few round-trips a holder needs; a holder stalled past it
	// loses the lock without noticing.
	DefaultLockLease = 15 * time.Second
	// DefaultTTL matches the default refresh-token lifetime.
	DefaultTTL    = 7 * 24 * time.Hour
	defaultPrefix = "gs"
)

// Config controls key naming, the session cap and lock timing.
type Config struct {
	Prefix      string
	MaxSessions int
	// TTL is the refresh-token lifetime; the user's set expires TTL after the latest Add.
	TTL         time.Duration
	LockTimeout time.Duration
	LockLease   time.Duration
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.LockLease <= 0 {
		c.LockLease = DefaultLockLease
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Store is the Redis-backed session registry.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	maxSessions int
	ttl         time.Duration
	lockTimeout time.Duration
	lockLease   time.Duration
	now         func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(rdb redis.UniversalClient, cfg Config) *Store {
	cfg = cfg.withDefaults()
	return &Store{
		redis:       rdb,
		prefix:      cfg.Prefix,
		maxSessions: cfg.MaxSessions,
		ttl:         cfg.TTL,
		lockTimeout: cfg.LockTimeout,
		lockLease:   cfg.LockLease,
		now:         cfg.Now,
	}
}

// MaxSessions returns the per-user cap.
func (s *Store) MaxSessions() int {
	return s.maxSessions
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":refresh:" + userID
}

func (s *Store) addLockKey(userID string) string {
	return s.prefix + ":lock:refresh_tokens:" + userID
}

func (s *Store) exceptLockKey(userID string) string {
	return s.prefix + ":lock:change_password:" + userID
}

// Add records jti as a live session of userID and evicts the oldest sessions
// beyond the cap. It returns the evicted jti values, oldest first.
//
// Insert, eviction and TTL refresh run in one MULTI block, so the set never
// holds more than the cap once Add returns, even on error.
//
//	Performance: SET NX + ZREVRANGE + MULTI(ZADD, ZRANGE, ZREMRANGEBYRANK, EXPIRE) + lock release.
func (s *Store) Add(ctx context.Context, userID, jti string) ([]string, error) {
	lk, err := s.acquire(ctx, s.addLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer lk.release(ctx)

	key := s.userKey(userID)
	score, err := s.nextScore(ctx, key)
	if err != nil {
		return nil, err
	}

	// Ranks 0..-(cap+1) are everything older than the newest cap members.
	stop := -int64(s.maxSessions) - 1

	var victims *redis.StringSliceCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: jti})
		victims = pipe.ZRange(ctx, key, 0, stop)
		pipe.ZRemRangeByRank(ctx, key, 0, stop)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	evicted := victims.Val()
	if len(evicted) == 0 {
		return nil, nil
	}
	return evicted, nil
}

// nextScore returns the current time in microseconds, bumped past the newest
// member so inserts within one clock tick keep their order. Callers hold the add lock.
func (s *Store) nextScore(ctx context.Context, key string) (float64, error) {
	score := float64(s.now().UnixMicro())
	newest, err := s.redis.ZRevRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(newest) > 0 && newest[0].Score >= score {
		score = newest[0].Score + 1
	}
	return score, nil
}

// Remove deletes one session. It reports whether this call removed it;
// removing an unknown jti is not an error.
func (s *Store) Remove(ctx context.Context, userID, jti string) (bool, error) {
	n, err := s.redis.ZRem(ctx, s.userKey(userID), jti).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// RemoveAll deletes every session of userID.
func (s *Store) RemoveAll(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RemoveAllExcept deletes every session of userID other than keepJTI and
// returns how many were removed.
//
// It locks on a different key than Add, so a concurrent Add may land either
// before or after the snapshot taken here.
func (s *Store) RemoveAllExcept(ctx context.Context, userID, keepJTI string) (int, error) {
	lk, err := s.acquire(ctx, s.exceptLockKey(userID))
	if err != nil {
		return 0, err
	}
	defer lk.release(ctx)

	key := s.userKey(userID)
	members, err := s.redis.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	stale := make([]interface{}, 0, len(members))
	for _, m := range members {
		if m != keepJTI {
			stale = append(stale, m)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := s.redis.ZRem(ctx, key, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// IsValid reports whether jti is a live session of userID.
func (s *Store) IsValid(ctx context.Context, userID, jti string) (bool, error) {
	err := s.redis.ZScore(ctx, s.userKey(userID), jti).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return true, nil
}

// Sessions lists the live sessions of userID, oldest first.
func (s *Store) Sessions(ctx context.Context, userID string) ([]Record, error) {
	zs, err := s.redis.ZRangeWithScores(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	out := make([]Record, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, recordFromScore(member, z.Score))
	}
	return out, nil
}

// Count returns the number of live sessions of userID.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.redis.ZCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
