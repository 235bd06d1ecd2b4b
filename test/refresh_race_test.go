//go:build integration
// +build integration

package test

import (
	"context"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestRefreshRaceSingleWinner(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ctx := context.Background()
			engine := newEngine(t, rdb)

			pair, err := engine.SignUp(ctx, goSession.SignUpInput{Login: "racer", Password: "correct-horse-1"})
			if err != nil {
				t.Fatalf("SignUp failed: %v", err)
			}

			const workers = 16
			start := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(workers)

			results := make(chan error, workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					<-start
					_, err := engine.Refresh(ctx, pair.RefreshToken)
					results <- err
				}()
			}

			close(start)
			wg.Wait()
			close(results)

			success := 0
			for err := range results {
				switch {
				case err == nil:
					success++
				case goSession.KindOf(err) == goSession.KindSessionNotRecognized:
				default:
					t.Fatalf("unexpected refresh error: %v", err)
				}
			}

			if success != 1 {
				t.Fatalf("expected exactly one winner, got %d", success)
			}

			n, err := engine.ActiveSessionCount(ctx, pair.UserID)
			if err != nil {
				t.Fatalf("ActiveSessionCount failed: %v", err)
			}
			if n != 1 {
				t.Fatalf("expected one live session after the race, got %d", n)
			}
		})
	}
}
