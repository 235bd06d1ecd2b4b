package goSession_test

import (
	"context"
	"testing"
)

func BenchmarkValidateAccess(b *testing.B) {
	h := newHarness(b)
	pair := h.signUp(b, "bench", "pw1")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.engine.ValidateAccess(pair.AccessToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	h := newHarness(b)
	ctx := context.Background()
	pair := h.signUp(b, "bench", "pw1")
	token := pair.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := h.engine.Refresh(ctx, token)
		if err != nil {
			b.Fatal(err)
		}
		token = next.RefreshToken
	}
}
