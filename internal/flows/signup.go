package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
)

// SignUpRequest is a validated registration request.
type SignUpRequest struct {
	Login    string
	Email    string
	Password string
}

// SignUpDeps captures sign-up flow dependencies.
type SignUpDeps struct {
	Hasher     Hasher
	CreateUser func(ctx context.Context, login, email, passwordHash string) (string, error)
	IsConflict func(error) bool
	MintPair   func(subject string) (jwt.Pair, error)
	Sessions   SessionStore
}

// RunSignUp creates the account, then issues its first session.
func RunSignUp(ctx context.Context, req SignUpRequest, deps SignUpDeps) TokenResult {
	hash, err := deps.Hasher.Hash(req.Password)
	if err != nil {
		return TokenResult{Failure: hashFailure(err), Err: err}
	}

	userID, err := deps.CreateUser(ctx, req.Login, req.Email, hash)
	if err != nil {
		if deps.IsConflict != nil && deps.IsConflict(err) {
			return TokenResult{Failure: FailureConflict, Err: err}
		}
		return TokenResult{Failure: FailureInternal, Err: err}
	}

	return issueSession(ctx, userID, deps.MintPair, deps.Sessions)
}

func issueSession(ctx context.Context, userID string, mint func(string) (jwt.Pair, error), sessions SessionStore) TokenResult {
	pair, err := mint(userID)
	if err != nil {
		return TokenResult{Failure: FailureInternal, Err: err, UserID: userID}
	}

	evicted, err := sessions.Add(ctx, userID, pair.Refresh.JTI)
	if err != nil {
		return TokenResult{Failure: FailureInternal, Err: err, UserID: userID}
	}

	return TokenResult{UserID: userID, Pair: pair, Evicted: evicted}
}
