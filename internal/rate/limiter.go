package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Policy is a request budget: Requests per Window for each client.
type Policy struct {
	Name     string
	Requests int
	Window   time.Duration
}

// Decision is the result of one Allow call.
type Decision struct {
	Allowed bool
	// RetryAfter is set when Allowed is false.
	RetryAfter time.Duration
}

// Limiter is implemented by Redis and Local.
type Limiter interface {
	Allow(ctx context.Context, p Policy, client string) (Decision, error)
}

// Redis is a fixed-window limiter shared by every node using the same Redis.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis creates a limiter whose keys live under prefix.
func NewRedis(redisClient redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (l *Redis) key(p Policy, client string) string {
	return l.prefix + ":rl:" + p.Name + ":" + client
}

// Allow counts one request against p for client.
func (l *Redis) Allow(ctx context.Context, p Policy, client string) (Decision, error) {
	if p.Requests <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := l.key(p, client)
	count, err := l.incrementWithTTL(ctx, key, p.Window)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if count <= int64(p.Requests) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.redis.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = p.Window
	}
	return Decision{RetryAfter: ttl}, nil
}

func (l *Redis) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
