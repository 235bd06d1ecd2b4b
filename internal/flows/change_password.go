package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

// ChangePasswordRequest carries the caller's current refresh token and both passwords.
type ChangePasswordRequest struct {
	RefreshToken string
	OldPassword  string
	NewPassword  string
}

// ChangePasswordDeps captures password-change flow dependencies.
type ChangePasswordDeps struct {
	Decode          func(string) (*jwt.Claims, error)
	Sessions        SessionStore
	FindByID        func(ctx context.Context, userID string) (UserRecord, error)
	UserNotFound    error
	Hasher          Hasher
	SetPasswordHash func(ctx context.Context, userID, passwordHash string) error
}

// RunChangePassword replaces the password and revokes every other session of
// the user. The session that made the request stays live.
//
// Identical passwords are rejected before any store or directory access.
func RunChangePassword(ctx context.Context, req ChangePasswordRequest, deps ChangePasswordDeps) SessionResult {
	claims, failure, err := decodeRefresh(deps.Decode, req.RefreshToken)
	if failure != FailureNone {
		return SessionResult{Failure: failure, Err: err}
	}
	if req.OldPassword == req.NewPassword {
		return SessionResult{Failure: FailurePasswordsIdentical, UserID: claims.Subject}
	}
	userID, jti := claims.Subject, claims.JTI()

	ok, err := deps.Sessions.IsValid(ctx, userID, jti)
	if err != nil {
		return SessionResult{Failure: FailureInternal, Err: err, UserID: userID, JTI: jti}
	}
	if !ok {
		return SessionResult{Failure: FailureSessionNotRecognized, UserID: userID, JTI: jti}
	}

	user, err := deps.FindByID(ctx, userID)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return SessionResult{Failure: FailureSessionNotRecognized, Err: err, UserID: userID, JTI: jti}
		}
		return SessionResult{Failure: FailureInternal, Err: err, UserID: userID, JTI: jti}
	}

	if !deps.Hasher.Matches(req.OldPassword, user.PasswordHash) {
		return SessionResult{Failure: FailureInvalidOldPassword, UserID: userID, JTI: jti}
	}

	hash, err := deps.Hasher.Hash(req.NewPassword)
	if err != nil {
		return SessionResult{Failure: hashFailure(err), Err: err, UserID: userID, JTI: jti}
	}
	if err := deps.SetPasswordHash(ctx, userID, hash); err != nil {
		return SessionResult{Failure: FailureInternal, Err: err, UserID: userID, JTI: jti}
	}

	removed, err := deps.Sessions.RemoveAllExcept(ctx, userID, jti)
	if err != nil {
		return SessionResult{Failure: FailureInternal, Err: err, UserID: userID, JTI: jti}
	}
	return SessionResult{UserID: userID, JTI: jti, Removed: removed}
}
