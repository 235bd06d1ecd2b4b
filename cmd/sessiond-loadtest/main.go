package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type userState struct {
	id   string
	mu   sync.Mutex
	jtis []string
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of users")
		maxSessions = flag.Int("max-sessions", 5, "per-user session cap")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (add, validate, rotate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gsload", "session key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *maxSessions <= 0 {
		fmt.Fprintln(os.Stderr, "users, max-sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, session.Config{
		Prefix:      *prefix,
		MaxSessions: *maxSessions,
		TTL:         time.Hour,
	})

	states := make([]*userState, *users)
	for i := range states {
		states[i] = &userState{id: fmt.Sprintf("load-user-%d", i)}
	}

	addStats := runAddPhase(ctx, store, states, *ops, *concurrency)
	capViolations := verifyCap(ctx, store, states, *maxSessions)
	validateStats := runValidatePhase(ctx, store, states, *ops, *concurrency)
	rotateStats := runRotatePhase(ctx, store, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("add", addStats)
	printStats("validate", validateStats)
	printStats("rotate", rotateStats)
	fmt.Printf("cap violations: %d\n", capViolations)
	if capViolations > 0 {
		os.Exit(1)
	}
}

// runAddPhase opens sessions concurrently; several workers hit the same user.
func runAddPhase(ctx context.Context, store *session.Store, states []*userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand) error {
		st := states[r.Intn(len(states))]
		jti := uuid.NewString()
		evicted, err := store.Add(ctx, st.id, jti)
		if err != nil {
			return err
		}
		st.mu.Lock()
		st.jtis = append(dropAll(st.jtis, evicted), jti)
		st.mu.Unlock()
		return nil
	})
}

func runValidatePhase(ctx context.Context, store *session.Store, states []*userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand) error {
		st := states[r.Intn(len(states))]
		st.mu.Lock()
		var jti string
		if len(st.jtis) > 0 {
			jti = st.jtis[r.Intn(len(st.jtis))]
		}
		st.mu.Unlock()
		if jti == "" {
			return nil
		}
		_, err := store.IsValid(ctx, st.id, jti)
		return err
	})
}

// runRotatePhase replays the refresh pattern: consume one jti, add a fresh one.
func runRotatePhase(ctx context.Context, store *session.Store, states []*userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 4001, func(r *rand.Rand) error {
		st := states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		if len(st.jtis) == 0 {
			return nil
		}

		idx := r.Intn(len(st.jtis))
		old := st.jtis[idx]
		removed, err := store.Remove(ctx, st.id, old)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("session %s already gone", old)
		}
		next := uuid.NewString()
		evicted, err := store.Add(ctx, st.id, next)
		if err != nil {
			return err
		}
		st.jtis = append(dropAll(append(st.jtis[:idx:idx], st.jtis[idx+1:]...), evicted), next)
		return nil
	})
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func verifyCap(ctx context.Context, store *session.Store, states []*userState, maxSessions int) int {
	violations := 0
	for _, st := range states {
		n, err := store.Count(ctx, st.id)
		if err != nil || n > maxSessions {
			violations++
		}
	}
	return violations
}

func dropAll(list, gone []string) []string {
	if len(gone) == 0 {
		return list
	}
	skip := make(map[string]struct{}, len(gone))
	for _, g := range gone {
		skip[g] = struct{}{}
	}
	out := list[:0]
	for _, v := range list {
		if _, ok := skip[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
