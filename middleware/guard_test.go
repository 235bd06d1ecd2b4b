package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	tokens map[string]*goSession.AccessResult
	err    error
}

func (s stubValidator) ValidateAccess(token string) (*goSession.AccessResult, error) {
	if res, ok := s.tokens[token]; ok {
		return res, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, &goSession.Error{Op: "validate_access", Kind: goSession.KindTokenInvalid}
}

func serve(t *testing.T, v AccessValidator, header string) (*httptest.ResponseRecorder, *goSession.AccessResult) {
	t.Helper()
	var seen *goSession.AccessResult
	h := RequireAccess(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AccessFromContext(r.Context())
		require.True(t, ok)
		seen = res
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAccessPassesClaims(t *testing.T) {
	want := &goSession.AccessResult{UserID: "u1", ExpiresAt: time.Unix(100, 0)}
	v := stubValidator{tokens: map[string]*goSession.AccessResult{"good": want}}

	for _, header := range []string{"Bearer good", "bearer good", "BEARER  good "} {
		rec, got := serve(t, v, header)
		assert.Equal(t, http.StatusNoContent, rec.Code, header)
		assert.Equal(t, want, got, header)
	}
}

func TestRequireAccessRejects(t *testing.T) {
	v := stubValidator{}
	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "Bearer bad"} {
		rec, got := serve(t, v, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Nil(t, got)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	}
}

func TestRequireAccessExpired(t *testing.T) {
	v := stubValidator{err: &goSession.Error{Op: "validate_access", Kind: goSession.KindTokenExpired, Err: errors.New("exp")}}
	rec, _ := serve(t, v, "Bearer old")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestRequireAccessNilValidator(t *testing.T) {
	rec, _ := serve(t, nil, "Bearer good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
