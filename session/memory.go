package session

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps sessions in process memory with the same contract as [Store].
//
// One mutex serializes every operation, so Add and RemoveAllExcept never
// interleave here. Sessions are lost on restart.
type MemoryStore struct {
	mu          sync.Mutex
	users       *ttlcache.Cache[string, *userSessions]
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
}

type userSessions struct {
	records []Record
}

func (u *userSessions) index(jti string) int {
	for i, r := range u.records {
		if r.JTI == jti {
			return i
		}
	}
	return -1
}

// NewMemoryStore creates an in-process store and starts its expiry loop.
// Call Close to stop it.
func NewMemoryStore(cfg Config) *MemoryStore {
	cfg = cfg.withDefaults()
	users := ttlcache.New[string, *userSessions](
		ttlcache.WithTTL[string, *userSessions](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, *userSessions](),
	)
	go users.Start()

	return &MemoryStore{
		users:       users,
		maxSessions: cfg.MaxSessions,
		ttl:         cfg.TTL,
		now:         cfg.Now,
	}
}

// Close stops the expiry loop.
func (m *MemoryStore) Close() {
	m.users.Stop()
}

// MaxSessions returns the per-user cap.
func (m *MemoryStore) MaxSessions() int {
	return m.maxSessions
}

func (m *MemoryStore) load(userID string) *userSessions {
	item := m.users.Get(userID)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Add records jti and evicts the oldest sessions beyond the cap.
func (m *MemoryStore) Add(_ context.Context, userID, jti string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load(userID)
	if set == nil {
		set = &userSessions{}
	}
	if i := set.index(jti); i >= 0 {
		set.records = append(set.records[:i], set.records[i+1:]...)
	}

	created := m.now().UTC().Truncate(time.Microsecond)
	if n := len(set.records); n > 0 && !created.After(set.records[n-1].CreatedAt) {
		created = set.records[n-1].CreatedAt.Add(time.Microsecond)
	}
	set.records = append(set.records, Record{JTI: jti, CreatedAt: created})

	var evicted []string
	if excess := len(set.records) - m.maxSessions; excess > 0 {
		for _, r := range set.records[:excess] {
			evicted = append(evicted, r.JTI)
		}
		set.records = append([]Record(nil), set.records[excess:]...)
	}

	m.users.Set(userID, set, m.ttl)
	return evicted, nil
}

// Remove deletes one session and reports whether it existed.
func (m *MemoryStore) Remove(_ context.Context, userID, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load(userID)
	if set == nil {
		return false, nil
	}
	i := set.index(jti)
	if i < 0 {
		return false, nil
	}
	set.records = append(set.records[:i], set.records[i+1:]...)
	if len(set.records) == 0 {
		m.users.Delete(userID)
	}
	return true, nil
}

// RemoveAll deletes every session of userID.
func (m *MemoryStore) RemoveAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users.Delete(userID)
	return nil
}

// RemoveAllExcept deletes every session of userID other than keepJTI.
func (m *MemoryStore) RemoveAllExcept(_ context.Context, userID, keepJTI string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load(userID)
	if set == nil {
		return 0, nil
	}
	i := set.index(keepJTI)
	removed := len(set.records)
	if i < 0 {
		m.users.Delete(userID)
		return removed, nil
	}
	set.records = []Record{set.records[i]}
	return removed - 1, nil
}

// IsValid reports whether jti is a live session of userID.
func (m *MemoryStore) IsValid(_ context.Context, userID, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load(userID)
	return set != nil && set.index(jti) >= 0, nil
}

// Sessions lists the live sessions of userID, oldest first.
func (m *MemoryStore) Sessions(_ context.Context, userID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load(userID)
	if set == nil {
		return []Record{}, nil
	}
	return append([]Record(nil), set.records...), nil
}

// Count returns the number of live sessions of userID.
func (m *MemoryStore) Count(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load(userID)
	if set == nil {
		return 0, nil
	}
	return len(set.records), nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) (time.Duration, error) {
	return 0, nil
}
