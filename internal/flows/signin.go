package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

// SignInDeps captures sign-in flow dependencies.
type SignInDeps struct {
	FindByIdentifier func(ctx context.Context, identifier string) (UserRecord, error)
	UserNotFound     error
	Hasher           Hasher
	UpgradeOnLogin   bool
	SetPasswordHash  func(ctx context.Context, userID, passwordHash string) error
	Warn             func(msg string, err error)
	MintPair         func(subject string) (jwt.Pair, error)
	Sessions         SessionStore
}

// RunSignIn checks credentials and opens a new session, evicting the oldest
// session when the user is at the cap.
func RunSignIn(ctx context.Context, identifier, password string, deps SignInDeps) TokenResult {
	user, err := deps.FindByIdentifier(ctx, identifier)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return TokenResult{Failure: FailureInvalidCredentials, Err: err}
		}
		return TokenResult{Failure: FailureInternal, Err: err}
	}

	if !deps.Hasher.Matches(password, user.PasswordHash) {
		return TokenResult{Failure: FailureInvalidCredentials, UserID: user.UserID}
	}

	if deps.UpgradeOnLogin && deps.SetPasswordHash != nil {
		upgradeHash(ctx, user, password, deps)
	}

	return issueSession(ctx, user.UserID, deps.MintPair, deps.Sessions)
}

// upgradeHash never fails the sign-in; problems are only reported through Warn.
func upgradeHash(ctx context.Context, user UserRecord, password string, deps SignInDeps) {
	needs, err := deps.Hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	next, err := deps.Hasher.Hash(password)
	if err == nil {
		err = deps.SetPasswordHash(ctx, user.UserID, next)
	}
	if err != nil && deps.Warn != nil {
		deps.Warn("password hash upgrade failed", err)
	}
}
