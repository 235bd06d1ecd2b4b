package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired is returned when a token's signature is valid but its exp has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for tokens that fail any other verification step.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrSessionNotRecognized is returned when a well-formed refresh token no longer names a live session.
	ErrSessionNotRecognized = errors.New("session not recognized")
	// ErrInvalidCredentials is returned by SignIn for an unknown identifier or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOldPassword is returned by ChangePassword when the current password does not match.
	ErrInvalidOldPassword = errors.New("invalid old password")
	// ErrPasswordsIdentical is returned by ChangePassword when the new password equals the old one.
	ErrPasswordsIdentical = errors.New("new password must differ from old password")
	// ErrPasswordRejected is returned by SignUp and ChangePassword when the hasher refuses the new password, e.g. for length.
	ErrPasswordRejected = errors.New("password rejected")
	// ErrUserNotFound is returned by a UserDirectory lookup that matches nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginTaken is returned by UserDirectory.CreateUser when the login is already registered.
	ErrLoginTaken = errors.New("login already registered")
	// ErrEmailTaken is returned by UserDirectory.CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInternal marks infrastructure failures: store, lock, directory or signing errors.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned when an Engine was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind tags every error returned by Engine operations so callers can
// branch without string matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTokenExpired
	KindTokenInvalid
	KindSessionNotRecognized
	KindInvalidCredentials
	KindInvalidOldPassword
	KindPasswordsIdentical
	KindPasswordRejected
	KindConflict
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTokenExpired:
		return "token_expired"
	case KindTokenInvalid:
		return "token_invalid"
	case KindSessionNotRecognized:
		return "session_not_recognized"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidOldPassword:
		return "invalid_old_password"
	case KindPasswordsIdentical:
		return "passwords_identical"
	case KindPasswordRejected:
		return "password_rejected"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// sentinel is the public error each kind unwraps to.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindTokenExpired:
		return ErrTokenExpired
	case KindTokenInvalid:
		return ErrTokenInvalid
	case KindSessionNotRecognized:
		return ErrSessionNotRecognized
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindInvalidOldPassword:
		return ErrInvalidOldPassword
	case KindPasswordsIdentical:
		return ErrPasswordsIdentical
	case KindPasswordRejected:
		return ErrPasswordRejected
	case KindInternal:
		return ErrInternal
	default:
		return nil
	}
}

// Error is the concrete error returned by Engine operations.
//
// errors.Is matches both the kind's sentinel (ErrTokenExpired, ErrInternal, ...)
// and the wrapped cause.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(op string, kind ErrorKind, cause error) error {
	return &Error{Op: op, Kind: kind, Err: cause}
}
