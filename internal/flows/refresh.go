package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

// ErrSessionConsumed is reported when the presented refresh token was removed
// by a concurrent request between the validity check and the rotation.
var ErrSessionConsumed = errors.New("refresh session consumed concurrently")

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Decode   func(string) (*jwt.Claims, error)
	MintPair func(subject string) (jwt.Pair, error)
	Sessions SessionStore
}

// RunRefresh rotates a refresh token: the presented jti is removed and the
// newly minted one is stored. A given refresh token succeeds at most once.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) TokenResult {
	claims, failure, err := decodeRefresh(deps.Decode, refreshToken)
	if failure != FailureNone {
		return TokenResult{Failure: failure, Err: err}
	}
	userID, jti := claims.Subject, claims.JTI()

	ok, err := deps.Sessions.IsValid(ctx, userID, jti)
	if err != nil {
		return TokenResult{Failure: FailureInternal, Err: err, UserID: userID}
	}
	if !ok {
		return TokenResult{Failure: FailureSessionNotRecognized, UserID: userID}
	}

	pair, err := deps.MintPair(userID)
	if err != nil {
		return TokenResult{Failure: FailureInternal, Err: err, UserID: userID}
	}

	removed, err := deps.Sessions.Remove(ctx, userID, jti)
	if err != nil {
		return TokenResult{Failure: FailureInternal, Err: err, UserID: userID}
	}
	if !removed {
		return TokenResult{Failure: FailureSessionNotRecognized, Err: ErrSessionConsumed, UserID: userID}
	}

	evicted, err := deps.Sessions.Add(ctx, userID, pair.Refresh.JTI)
	if err != nil {
		return TokenResult{Failure: FailureInternal, Err: err, UserID: userID}
	}

	return TokenResult{UserID: userID, Pair: pair, Evicted: evicted}
}
