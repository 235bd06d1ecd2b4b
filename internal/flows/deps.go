package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	SignUp         SignUpDeps
	SignIn         SignInDeps
	Refresh        RefreshDeps
	Logout         LogoutDeps
	ChangePassword ChangePasswordDeps
}

// FailureKind classifies flow failures for root-level mapping.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTokenExpired
	FailureTokenInvalid
	FailureSessionNotRecognized
	FailureInvalidCredentials
	FailureInvalidOldPassword
	FailurePasswordsIdentical
	FailurePasswordRejected
	FailureConflict
	FailureInternal
)

// SessionStore is the subset of the session registry the flows mutate.
type SessionStore interface {
	Add(ctx context.Context, userID, jti string) ([]string, error)
	Remove(ctx context.Context, userID, jti string) (bool, error)
	RemoveAll(ctx context.Context, userID string) error
	RemoveAllExcept(ctx context.Context, userID, keepJTI string) (int, error)
	IsValid(ctx context.Context, userID, jti string) (bool, error)
}

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Matches(password, encodedHash string) bool
	NeedsUpgrade(encodedHash string) (bool, error)
}

// UserRecord is the part of an account the flows read.
type UserRecord struct {
	UserID       string
	PasswordHash string
}

// TokenResult carries either an issued token pair or failure metadata.
type TokenResult struct {
	Failure FailureKind
	Err     error
	UserID  string
	Pair    jwt.Pair
	// Evicted lists sessions dropped to keep the user under the cap.
	Evicted []string
}

// SessionResult reports the outcome of a flow that only revokes sessions.
type SessionResult struct {
	Failure FailureKind
	Err     error
	UserID  string
	JTI     string
	Removed int
}

// hashFailure separates caller-input rejections from hasher faults.
func hashFailure(err error) FailureKind {
	if errors.Is(err, password.ErrPasswordTooLong) {
		return FailurePasswordRejected
	}
	return FailureInternal
}

var errMissingJTI = fmt.Errorf("%w: missing jti", jwt.ErrInvalid)

func decodeFailure(err error) FailureKind {
	if errors.Is(err, jwt.ErrExpired) {
		return FailureTokenExpired
	}
	return FailureTokenInvalid
}

// decodeRefresh decodes a refresh token and requires a jti.
func decodeRefresh(decode func(string) (*jwt.Claims, error), token string) (*jwt.Claims, FailureKind, error) {
	claims, err := decode(token)
	if err != nil {
		return nil, decodeFailure(err), err
	}
	if claims.JTI() == "" {
		return nil, FailureTokenInvalid, errMissingJTI
	}
	return claims, FailureNone, nil
}
