package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	StoreAvailable bool
	StoreLatency   time.Duration
}

// ActiveSessions lists the live sessions of userID, oldest first.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]session.Record, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}
	return e.sessions.Sessions(ctx, userID)
}

// ActiveSessionCount returns how many sessions userID holds.
func (e *Engine) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrUserNotFound
	}
	return e.sessions.Count(ctx, userID)
}

// IsSessionActive reports whether jti is a live session of userID.
func (e *Engine) IsSessionActive(ctx context.Context, userID, jti string) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, ErrEngineNotReady
	}
	return e.sessions.IsValid(ctx, userID, jti)
}

// RevokeUser ends every session of userID without a refresh token. Call it
// after removing the user from the directory: Refresh and Logout consult only
// the session store.
func (e *Engine) RevokeUser(ctx context.Context, userID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}
	if err := e.sessions.RemoveAll(context.WithoutCancel(ctx), userID); err != nil {
		e.metrics.Inc(MetricStoreFailure)
		return newError(opRevokeUser, KindInternal, err)
	}
	e.metrics.Inc(MetricLogoutAll)
	e.logger(ctx).Info().Str("user_id", userID).Msg("user sessions revoked")
	return nil
}

// Health pings the session store.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessions == nil {
		return HealthStatus{}
	}
	latency, err := e.sessions.Ping(ctx)
	return HealthStatus{StoreAvailable: err == nil, StoreLatency: latency}
}

// MetricsSnapshot returns the current engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}
