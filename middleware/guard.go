package middleware

import (
	"context"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// AccessValidator verifies access tokens. *goSession.Engine implements it.
type AccessValidator interface {
	ValidateAccess(token string) (*goSession.AccessResult, error)
}

type accessContextKey struct{}

// AccessFromContext returns the access result stored by RequireAccess.
func AccessFromContext(ctx context.Context) (*goSession.AccessResult, bool) {
	res, ok := ctx.Value(accessContextKey{}).(*goSession.AccessResult)
	return res, ok
}

// WithAccess stores res in ctx the way RequireAccess does.
func WithAccess(ctx context.Context, res *goSession.AccessResult) context.Context {
	return context.WithValue(ctx, accessContextKey{}, res)
}

// RequireAccess rejects requests without a valid bearer access token.
// Expired tokens get error="invalid_token" with a distinct description so
// clients know to refresh.
func RequireAccess(v AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w, "unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "unauthorized")
				return
			}

			res, err := v.ValidateAccess(token)
			if err != nil {
				if goSession.KindOf(err) == goSession.KindTokenExpired {
					unauthorized(w, "token expired")
					return
				}
				unauthorized(w, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), res)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	http.Error(w, msg, http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
