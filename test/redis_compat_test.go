//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// TestRedisCompatEngineLifecycle drives every public engine operation against
// each available Redis backend.
func TestRedisCompatEngineLifecycle(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ctx := context.Background()
			engine := newEngine(t, rdb)

			first, err := engine.SignUp(ctx, goSession.SignUpInput{
				Login:    "compat",
				Email:    "compat@example.com",
				Password: "correct-horse-1",
			})
			if err != nil {
				t.Fatalf("SignUp failed: %v", err)
			}

			second, err := engine.SignIn(ctx, "COMPAT@example.com", "correct-horse-1")
			if err != nil {
				t.Fatalf("SignIn failed: %v", err)
			}

			res, err := engine.ValidateAccess(second.AccessToken)
			if err != nil {
				t.Fatalf("ValidateAccess failed: %v", err)
			}
			if res.UserID != first.UserID {
				t.Fatalf("access token subject %q, want %q", res.UserID, first.UserID)
			}

			rotated, err := engine.Refresh(ctx, second.RefreshToken)
			if err != nil {
				t.Fatalf("Refresh failed: %v", err)
			}
			if _, err := engine.Refresh(ctx, second.RefreshToken); !errors.Is(err, goSession.ErrSessionNotRecognized) {
				t.Fatalf("expected replayed refresh to be rejected, got %v", err)
			}

			if err := engine.ChangePassword(ctx, rotated.RefreshToken, "correct-horse-1", "battery-staple-2"); err != nil {
				t.Fatalf("ChangePassword failed: %v", err)
			}
			if n, err := engine.ActiveSessionCount(ctx, first.UserID); err != nil || n != 1 {
				t.Fatalf("ActiveSessionCount = %d, %v; want 1, nil", n, err)
			}
			if _, err := engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, goSession.ErrSessionNotRecognized) {
				t.Fatalf("expected sign-up session to end after password change, got %v", err)
			}
			if _, err := engine.SignIn(ctx, "compat", "battery-staple-2"); err != nil {
				t.Fatalf("SignIn with new password failed: %v", err)
			}

			if err := engine.Logout(ctx, rotated.RefreshToken); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
			if err := engine.LogoutAll(ctx, rotated.RefreshToken); !errors.Is(err, goSession.ErrSessionNotRecognized) {
				t.Fatalf("expected LogoutAll with ended session to fail, got %v", err)
			}

			health := engine.Health(ctx)
			if !health.StoreAvailable {
				t.Fatal("expected store to be available")
			}
		})
	}
}

func TestRedisCompatSessionExpiry(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ctx := context.Background()
			prefix := uniquePrefix()
			store := session.NewStore(rdb, session.Config{Prefix: prefix, TTL: time.Hour})
			if _, err := store.Add(ctx, "u1", "jti-a"); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			ttl, err := rdb.TTL(ctx, prefix+":refresh:u1").Result()
			if err != nil {
				t.Fatalf("TTL failed: %v", err)
			}
			if ttl <= 0 || ttl > time.Hour {
				t.Fatalf("expected TTL in (0, 1h], got %s", ttl)
			}
		})
	}
}
