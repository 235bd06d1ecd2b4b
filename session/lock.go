package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockRetryMin = 5 * time.Millisecond
	lockRetryMax = 100 * time.Millisecond
)

// Only the holder that set the token may delete the key.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLockLua = redis.NewScript(releaseLockScript)

type heldLock struct {
	redis redis.UniversalClient
	key   string
	token string
}

// acquire spins on SET NX PX until it owns key or LockTimeout elapses.
func (s *Store) acquire(ctx context.Context, key string) (*heldLock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(s.lockTimeout)
	wait := lockRetryMin

	for {
		ok, err := s.redis.SetNX(ctx, key, token, s.lockLease).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if ok {
			return &heldLock{redis: s.redis, key: key, token: token}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > lockRetryMax {
			wait = lockRetryMax
		}
	}
}

// release runs even when ctx is already cancelled; an unreleased lock
// still expires after LockLease.
func (l *heldLock) release(ctx context.Context) {
	_ = releaseLockLua.Run(context.WithoutCancel(ctx), l.redis, []string{l.key}, l.token).Err()
}
