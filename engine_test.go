package goSession_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/userdir/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine *goSession.Engine
	users  *memory.Directory
	redis  *miniredis.Miniredis
	clock  *testClock
}

func testConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newHarness(t testing.TB, mutate ...func(*goSession.Config)) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	users := memory.New()

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(users).
		WithClock(clock.Now).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return &harness{engine: engine, users: users, redis: mr, clock: clock}
}

func (h *harness) signUp(t testing.TB, login, pw string) goSession.TokenPair {
	t.Helper()
	pair, err := h.engine.SignUp(context.Background(), goSession.SignUpInput{
		Login:    login,
		Email:    login + "@example.com",
		Password: pw,
	})
	if err != nil {
		t.Fatalf("SignUp(%s): %v", login, err)
	}
	return pair
}

func requireKind(t *testing.T, err error, want goSession.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := goSession.KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}

func TestSignUpThenSignIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.signUp(t, "alice", "pw1")
	if pair.UserID == "" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete pair: %+v", pair)
	}

	access, err := h.engine.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if access.UserID != pair.UserID {
		t.Fatalf("subject mismatch: %s != %s", access.UserID, pair.UserID)
	}
	if !access.ExpiresAt.Equal(h.clock.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry %v", access.ExpiresAt)
	}

	for _, id := range []string{"alice", "ALICE", "alice@example.com"} {
		got, err := h.engine.SignIn(ctx, id, "pw1")
		if err != nil {
			t.Fatalf("SignIn(%s): %v", id, err)
		}
		if got.UserID != pair.UserID {
			t.Fatalf("SignIn(%s) resolved %s", id, got.UserID)
		}
	}

	_, err = h.engine.SignIn(ctx, "alice", "wrong")
	requireKind(t, err, goSession.KindInvalidCredentials)
	if !errors.Is(err, goSession.ErrInvalidCredentials) {
		t.Fatalf("errors.Is(ErrInvalidCredentials) = false for %v", err)
	}

	_, err = h.engine.SignIn(ctx, "nobody", "pw1")
	requireKind(t, err, goSession.KindInvalidCredentials)
}

func TestSignUpConflict(t *testing.T) {
	h := newHarness(t)
	h.signUp(t, "alice", "pw1")

	_, err := h.engine.SignUp(context.Background(), goSession.SignUpInput{
		Login:    "Alice",
		Email:    "fresh@example.com",
		Password: "pw2",
	})
	requireKind(t, err, goSession.KindConflict)
	if !errors.Is(err, goSession.ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken in chain, got %v", err)
	}
}

func TestSixthSessionEvictsOldest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.signUp(t, "bob", "pw1")
	pairs := []goSession.TokenPair{first}
	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Second)
		p, err := h.engine.SignIn(ctx, "bob", "pw1")
		if err != nil {
			t.Fatalf("SignIn #%d: %v", i+2, err)
		}
		pairs = append(pairs, p)
	}

	n, err := h.engine.ActiveSessionCount(ctx, first.UserID)
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 sessions, got %d", n)
	}

	_, err = h.engine.Refresh(ctx, first.RefreshToken)
	requireKind(t, err, goSession.KindSessionNotRecognized)

	if _, err := h.engine.Refresh(ctx, pairs[1].RefreshToken); err != nil {
		t.Fatalf("second session should survive: %v", err)
	}

	snap := h.engine.MetricsSnapshot()
	if got := snap.Counters[goSession.MetricSessionEvicted]; got != 1 {
		t.Fatalf("expected 1 eviction, got %d", got)
	}
}

func TestRefreshRotatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := h.signUp(t, "carol", "pw1")

	h.clock.Advance(time.Second)
	next, err := h.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	_, err = h.engine.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, goSession.KindSessionNotRecognized)
	if !errors.Is(err, goSession.ErrSessionNotRecognized) {
		t.Fatalf("errors.Is(ErrSessionNotRecognized) = false for %v", err)
	}

	if _, err := h.engine.Refresh(ctx, next.RefreshToken); err != nil {
		t.Fatalf("rotated token should be usable: %v", err)
	}

	n, _ := h.engine.ActiveSessionCount(ctx, pair.UserID)
	if n != 1 {
		t.Fatalf("rotation must not grow the session set, got %d", n)
	}
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	h := newHarness(t)
	pair := h.signUp(t, "dave", "pw1")

	const workers = 16
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		rejected atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.engine.Refresh(context.Background(), pair.RefreshToken)
			switch {
			case err == nil:
				wins.Add(1)
			case goSession.KindOf(err) == goSession.KindSessionNotRecognized:
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	if rejected.Load() != workers-1 {
		t.Fatalf("expected %d rejections, got %d", workers-1, rejected.Load())
	}
}

func TestChangePasswordKeepsCallerSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	caller := h.signUp(t, "erin", "pw1")
	other1, err := h.engine.SignIn(ctx, "erin", "pw1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	other2, err := h.engine.SignIn(ctx, "erin", "pw1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := h.engine.ChangePassword(ctx, caller.RefreshToken, "pw1", "pw2"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	n, _ := h.engine.ActiveSessionCount(ctx, caller.UserID)
	if n != 1 {
		t.Fatalf("expected only the caller session, got %d", n)
	}
	for _, p := range []goSession.TokenPair{other1, other2} {
		_, err := h.engine.Refresh(ctx, p.RefreshToken)
		requireKind(t, err, goSession.KindSessionNotRecognized)
	}
	if _, err := h.engine.Refresh(ctx, caller.RefreshToken); err != nil {
		t.Fatalf("caller session should survive: %v", err)
	}

	_, err = h.engine.SignIn(ctx, "erin", "pw1")
	requireKind(t, err, goSession.KindInvalidCredentials)
	if _, err := h.engine.SignIn(ctx, "erin", "pw2"); err != nil {
		t.Fatalf("SignIn with new password: %v", err)
	}
}

func TestChangePasswordRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := h.signUp(t, "frank", "pw1")

	err := h.engine.ChangePassword(ctx, pair.RefreshToken, "pw1", "pw1")
	requireKind(t, err, goSession.KindPasswordsIdentical)

	err = h.engine.ChangePassword(ctx, pair.RefreshToken, "nope", "pw2")
	requireKind(t, err, goSession.KindInvalidOldPassword)

	err = h.engine.ChangePassword(ctx, pair.AccessToken, "pw1", "pw2")
	requireKind(t, err, goSession.KindTokenInvalid)

	h.users.Delete(pair.UserID)
	err = h.engine.ChangePassword(ctx, pair.RefreshToken, "pw1", "pw2")
	requireKind(t, err, goSession.KindSessionNotRecognized)
}

func TestOverlongPasswordIsCallerError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	long := strings.Repeat("a", 1025)

	_, err := h.engine.SignUp(ctx, goSession.SignUpInput{Login: "lena", Password: long})
	requireKind(t, err, goSession.KindPasswordRejected)
	if !errors.Is(err, goSession.ErrPasswordRejected) {
		t.Fatalf("errors.Is(ErrPasswordRejected) = false for %v", err)
	}
	if _, err := h.users.FindByIdentifier(ctx, "lena"); !errors.Is(err, goSession.ErrUserNotFound) {
		t.Fatalf("rejected sign-up must not create the user, got %v", err)
	}

	pair := h.signUp(t, "lena", "pw1")
	err = h.engine.ChangePassword(ctx, pair.RefreshToken, "pw1", long)
	requireKind(t, err, goSession.KindPasswordRejected)
	if _, err := h.engine.SignIn(ctx, "lena", "pw1"); err != nil {
		t.Fatalf("old password should still work: %v", err)
	}

	if n := h.engine.MetricsSnapshot().Counters[goSession.MetricStoreFailure]; n != 0 {
		t.Fatalf("caller errors must not count as store failures, got %d", n)
	}
}

func TestExpiredTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair := h.signUp(t, "gina", "pw1")

	h.clock.Advance(15 * time.Minute)
	_, err := h.engine.ValidateAccess(pair.AccessToken)
	requireKind(t, err, goSession.KindTokenExpired)

	h.clock.Advance(7 * 24 * time.Hour)
	_, err = h.engine.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, goSession.KindTokenExpired)
	if !errors.Is(err, goSession.ErrTokenExpired) {
		t.Fatalf("errors.Is(ErrTokenExpired) = false for %v", err)
	}
}

func TestValidateAccessRejectsRefreshAndGarbage(t *testing.T) {
	h := newHarness(t)
	pair := h.signUp(t, "hank", "pw1")

	_, err := h.engine.ValidateAccess(pair.RefreshToken)
	requireKind(t, err, goSession.KindTokenInvalid)

	_, err = h.engine.ValidateAccess("not.a.jwt")
	requireKind(t, err, goSession.KindTokenInvalid)

	_, err = h.engine.Refresh(context.Background(), pair.AccessToken)
	requireKind(t, err, goSession.KindTokenInvalid)
}

func TestLogoutAndLogoutAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.signUp(t, "ivy", "pw1")
	b, err := h.engine.SignIn(ctx, "ivy", "pw1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	c, err := h.engine.SignIn(ctx, "ivy", "pw1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := h.engine.Logout(ctx, a.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	err = h.engine.Logout(ctx, a.RefreshToken)
	requireKind(t, err, goSession.KindSessionNotRecognized)

	if err := h.engine.LogoutAll(ctx, b.RefreshToken); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	n, _ := h.engine.ActiveSessionCount(ctx, a.UserID)
	if n != 0 {
		t.Fatalf("expected no sessions after LogoutAll, got %d", n)
	}
	_, err = h.engine.Refresh(ctx, c.RefreshToken)
	requireKind(t, err, goSession.KindSessionNotRecognized)
}

func TestDeletedUserSessionsEndOnRevoke(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.signUp(t, "kate", "pw1")
	b, err := h.engine.SignIn(ctx, "kate", "pw1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	h.users.Delete(a.UserID)

	// Directory deletion alone leaves sessions live.
	a2, err := h.engine.Refresh(ctx, a.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh after Delete: %v", err)
	}

	if err := h.engine.RevokeUser(ctx, a.UserID); err != nil {
		t.Fatalf("RevokeUser: %v", err)
	}
	_, err = h.engine.Refresh(ctx, a2.RefreshToken)
	requireKind(t, err, goSession.KindSessionNotRecognized)
	err = h.engine.Logout(ctx, b.RefreshToken)
	requireKind(t, err, goSession.KindSessionNotRecognized)

	if err := h.engine.RevokeUser(ctx, ""); !errors.Is(err, goSession.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty id, got %v", err)
	}
}

func TestSessionKeysUseConfiguredPrefix(t *testing.T) {
	h := newHarness(t, func(c *goSession.Config) { c.Session.RedisPrefix = "svc" })
	pair := h.signUp(t, "jack", "pw1")

	key := "svc:refresh:" + pair.UserID
	if !h.redis.Exists(key) {
		t.Fatalf("expected key %s, have %v", key, h.redis.Keys())
	}
	if ttl := h.redis.TTL(key); ttl != 7*24*time.Hour {
		t.Fatalf("expected refresh TTL on key, got %v", ttl)
	}
}

func TestStoreOutageIsInternal(t *testing.T) {
	h := newHarness(t)
	pair := h.signUp(t, "kate", "pw1")

	h.redis.Close()

	_, err := h.engine.Refresh(context.Background(), pair.RefreshToken)
	requireKind(t, err, goSession.KindInternal)
	if !errors.Is(err, goSession.ErrInternal) {
		t.Fatalf("errors.Is(ErrInternal) = false for %v", err)
	}

	health := h.engine.Health(context.Background())
	if health.StoreAvailable {
		t.Fatal("store should report unavailable")
	}
}

func TestBuildRequiresCollaborators(t *testing.T) {
	if _, err := goSession.New().WithConfig(testConfig()).WithUserDirectory(memory.New()).Build(); err == nil {
		t.Fatal("expected error without redis or session store")
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	if _, err := goSession.New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user directory")
	}

	b := goSession.New().WithConfig(testConfig()).WithRedis(rdb).WithUserDirectory(memory.New())
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestZeroEngineNotReady(t *testing.T) {
	var e goSession.Engine
	_, err := e.SignIn(context.Background(), "x", "y")
	requireKind(t, err, goSession.KindInternal)
	if !errors.Is(err, goSession.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
