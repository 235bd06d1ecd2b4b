package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// UserRecord is an account as seen by the session core.
type UserRecord struct {
	UserID       string
	Login        string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput is a new account with its already-hashed password.
type CreateUserInput struct {
	Login        string
	Email        string
	PasswordHash string
}

// UserDirectory owns account records. Implementations live in the userdir
// packages; uniqueness of login and email is enforced there.
//
// Lookups that match nothing return ErrUserNotFound. CreateUser returns
// ErrLoginTaken or ErrEmailTaken on conflicts.
type UserDirectory interface {
	// FindByIdentifier resolves a login or an email address.
	FindByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	FindByID(ctx context.Context, userID string) (UserRecord, error)
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	CreateUser(ctx context.Context, in CreateUserInput) (UserRecord, error)
}

// SessionStore is the per-user refresh session registry.
// [session.Store] and [session.MemoryStore] implement it.
type SessionStore interface {
	Add(ctx context.Context, userID, jti string) ([]string, error)
	Remove(ctx context.Context, userID, jti string) (bool, error)
	RemoveAll(ctx context.Context, userID string) error
	RemoveAllExcept(ctx context.Context, userID, keepJTI string) (int, error)
	IsValid(ctx context.Context, userID, jti string) (bool, error)
	Sessions(ctx context.Context, userID string) ([]session.Record, error)
	Count(ctx context.Context, userID string) (int, error)
	Ping(ctx context.Context) (time.Duration, error)
}

// SignUpInput is a validated registration request.
type SignUpInput struct {
	Login    string
	Email    string
	Password string
}

// TokenPair is returned by SignUp, SignIn and Refresh.
type TokenPair struct {
	UserID           string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AccessResult is the verified content of an access token.
type AccessResult struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
