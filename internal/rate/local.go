package rate

import (
	"context"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

// Local keeps one token bucket per (policy, client) in memory.
// Buckets refill at Requests/Window with a burst of Requests.
type Local struct {
	mu          sync.Mutex
	limiters    map[string]*xrate.Limiter
	lastCleanup time.Time
	now         func() time.Time
}

// NewLocal returns an empty in-process limiter.
func NewLocal() *Local {
	return &Local{
		limiters:    make(map[string]*xrate.Limiter),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow takes one token from the client's bucket for p.
func (l *Local) Allow(_ context.Context, p Policy, client string) (Decision, error) {
	if p.Requests <= 0 || p.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	lim := l.limiter(p, client, now)

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *Local) limiter(p Policy, client string, now time.Time) *xrate.Limiter {
	key := p.Name + ":" + client

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}

	l.cleanup(now)
	every := p.Window / time.Duration(p.Requests)
	lim := xrate.NewLimiter(xrate.Every(every), p.Requests)
	l.limiters[key] = lim
	return lim
}

// cleanup drops buckets that have refilled completely. Caller holds mu.
func (l *Local) cleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = now

	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(l.limiters, key)
		}
	}
}
