package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Decode   func(string) (*jwt.Claims, error)
	Sessions SessionStore
}

// RunLogout ends the session named by refreshToken. Logging out twice with
// the same token fails the second time.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) SessionResult {
	claims, res := checkLiveRefresh(ctx, refreshToken, deps)
	if res.Failure != FailureNone {
		return res
	}

	removed, err := deps.Sessions.Remove(ctx, claims.Subject, claims.JTI())
	if err != nil {
		return SessionResult{Failure: FailureInternal, Err: err, UserID: claims.Subject, JTI: claims.JTI()}
	}
	if !removed {
		return SessionResult{Failure: FailureSessionNotRecognized, Err: ErrSessionConsumed, UserID: claims.Subject, JTI: claims.JTI()}
	}
	return SessionResult{UserID: claims.Subject, JTI: claims.JTI(), Removed: 1}
}

// RunLogoutAll ends every session of the user named by refreshToken.
func RunLogoutAll(ctx context.Context, refreshToken string, deps LogoutDeps) SessionResult {
	claims, res := checkLiveRefresh(ctx, refreshToken, deps)
	if res.Failure != FailureNone {
		return res
	}

	if err := deps.Sessions.RemoveAll(ctx, claims.Subject); err != nil {
		return SessionResult{Failure: FailureInternal, Err: err, UserID: claims.Subject, JTI: claims.JTI()}
	}
	return SessionResult{UserID: claims.Subject, JTI: claims.JTI()}
}

func checkLiveRefresh(ctx context.Context, refreshToken string, deps LogoutDeps) (*jwt.Claims, SessionResult) {
	claims, failure, err := decodeRefresh(deps.Decode, refreshToken)
	if failure != FailureNone {
		return nil, SessionResult{Failure: failure, Err: err}
	}

	ok, err := deps.Sessions.IsValid(ctx, claims.Subject, claims.JTI())
	if err != nil {
		return nil, SessionResult{Failure: FailureInternal, Err: err, UserID: claims.Subject, JTI: claims.JTI()}
	}
	if !ok {
		return nil, SessionResult{Failure: FailureSessionNotRecognized, UserID: claims.Subject, JTI: claims.JTI()}
	}
	return claims, SessionResult{}
}
