package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/rs/zerolog"
)

// Engine runs the session use cases. Build it with New() and Builder.Build.
//
// Operations detach from caller cancellation once started: a client that
// disconnects does not abort a half-applied store mutation. Lock waits are
// still bounded by Config.Session.LockTimeout.
type Engine struct {
	config   Config
	users    UserDirectory
	sessions SessionStore
	hasher   *password.Argon2
	codec    *jwt.Manager
	metrics  *Metrics
	log      zerolog.Logger
	flow     flows.Service
}

const (
	opSignUp         = "sign_up"
	opSignIn         = "sign_in"
	opRefresh        = "refresh"
	opLogout         = "logout"
	opLogoutAll      = "logout_all"
	opChangePassword = "change_password"
	opValidateAccess = "validate_access"
	opRevokeUser     = "revoke_user"
)

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// SignUp creates an account and opens its first session.
func (e *Engine) SignUp(ctx context.Context, in SignUpInput) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, newError(opSignUp, KindInternal, ErrEngineNotReady)
	}
	ctx = context.WithoutCancel(ctx)

	res := e.flow.SignUp(ctx, flows.SignUpRequest{
		Login:    in.Login,
		Email:    in.Email,
		Password: in.Password,
	})
	if res.Failure != flows.FailureNone {
		if res.Failure == flows.FailureConflict {
			e.metrics.Inc(MetricSignUpConflict)
		}
		return TokenPair{}, e.fail(ctx, opSignUp, res.Failure, res.Err, res.UserID)
	}

	e.metrics.Inc(MetricSignUpSuccess)
	e.sessionOpened(ctx, opSignUp, res)
	return toTokenPair(res), nil
}

// SignIn authenticates by login or email and opens a new session. When the
// user already holds the maximum number of sessions the oldest is evicted.
func (e *Engine) SignIn(ctx context.Context, identifier, password string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, newError(opSignIn, KindInternal, ErrEngineNotReady)
	}
	ctx = context.WithoutCancel(ctx)

	res := e.flow.SignIn(ctx, identifier, password)
	if res.Failure != flows.FailureNone {
		if res.Failure == flows.FailureInvalidCredentials {
			e.metrics.Inc(MetricSignInFailure)
		}
		return TokenPair{}, e.fail(ctx, opSignIn, res.Failure, res.Err, res.UserID)
	}

	e.metrics.Inc(MetricSignInSuccess)
	e.sessionOpened(ctx, opSignIn, res)
	return toTokenPair(res), nil
}

// Refresh consumes refreshToken and returns a new pair. Each refresh token
// succeeds at most once; later attempts fail with KindSessionNotRecognized.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, newError(opRefresh, KindInternal, ErrEngineNotReady)
	}
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	res := e.flow.Refresh(ctx, refreshToken)
	e.metrics.Observe(MetricRefreshLatency, time.Since(start))
	if res.Failure != flows.FailureNone {
		e.metrics.Inc(MetricRefreshFailure)
		if res.Failure == flows.FailureSessionNotRecognized {
			e.metrics.Inc(MetricRefreshNotRecognized)
		}
		return TokenPair{}, e.fail(ctx, opRefresh, res.Failure, res.Err, res.UserID)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.sessionOpened(ctx, opRefresh, res)
	return toTokenPair(res), nil
}

// Logout ends the session named by refreshToken.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return newError(opLogout, KindInternal, ErrEngineNotReady)
	}
	ctx = context.WithoutCancel(ctx)

	res := e.flow.Logout(ctx, refreshToken)
	if res.Failure != flows.FailureNone {
		return e.fail(ctx, opLogout, res.Failure, res.Err, res.UserID)
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Add(MetricSessionInvalidated, uint64(res.Removed))
	return nil
}

// LogoutAll ends every session of the user named by refreshToken.
func (e *Engine) LogoutAll(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return newError(opLogoutAll, KindInternal, ErrEngineNotReady)
	}
	ctx = context.WithoutCancel(ctx)

	res := e.flow.LogoutAll(ctx, refreshToken)
	if res.Failure != flows.FailureNone {
		return e.fail(ctx, opLogoutAll, res.Failure, res.Err, res.UserID)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.logger(ctx).Info().Str("user_id", res.UserID).Msg("all sessions ended")
	return nil
}

// ChangePassword verifies oldPassword, stores the hash of newPassword and
// revokes every other session of the user. The session identified by
// refreshToken stays live.
func (e *Engine) ChangePassword(ctx context.Context, refreshToken, oldPassword, newPassword string) error {
	if !e.ready() {
		return newError(opChangePassword, KindInternal, ErrEngineNotReady)
	}
	ctx = context.WithoutCancel(ctx)

	res := e.flow.ChangePassword(ctx, flows.ChangePasswordRequest{
		RefreshToken: refreshToken,
		OldPassword:  oldPassword,
		NewPassword:  newPassword,
	})
	if res.Failure != flows.FailureNone {
		switch res.Failure {
		case flows.FailurePasswordsIdentical:
			e.metrics.Inc(MetricPasswordChangeIdentical)
		case flows.FailureInvalidOldPassword:
			e.metrics.Inc(MetricPasswordChangeInvalidOld)
		}
		return e.fail(ctx, opChangePassword, res.Failure, res.Err, res.UserID)
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.metrics.Add(MetricSessionInvalidated, uint64(res.Removed))
	e.logger(ctx).Info().
		Str("user_id", res.UserID).
		Int("revoked", res.Removed).
		Msg("password changed")
	return nil
}

// ValidateAccess verifies an access token. Refresh tokens are rejected.
func (e *Engine) ValidateAccess(token string) (*AccessResult, error) {
	if !e.ready() {
		return nil, newError(opValidateAccess, KindInternal, ErrEngineNotReady)
	}

	claims, err := e.codec.Decode(token)
	if err != nil {
		failure := flows.FailureTokenInvalid
		if errors.Is(err, jwt.ErrExpired) {
			failure = flows.FailureTokenExpired
		}
		e.countTokenFailure(failure)
		return nil, newError(opValidateAccess, kindFromFailure(failure), err)
	}
	if claims.JTI() != "" {
		e.countTokenFailure(flows.FailureTokenInvalid)
		return nil, newError(opValidateAccess, KindTokenInvalid, errors.New("refresh token presented as access token"))
	}

	out := &AccessResult{UserID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func (e *Engine) sessionOpened(ctx context.Context, op string, res flows.TokenResult) {
	e.metrics.Inc(MetricSessionCreated)
	if len(res.Evicted) == 0 {
		return
	}
	e.metrics.Add(MetricSessionEvicted, uint64(len(res.Evicted)))
	e.logger(ctx).Info().
		Str("op", op).
		Str("user_id", res.UserID).
		Int("evicted", len(res.Evicted)).
		Msg("session cap reached, oldest sessions evicted")
}

func (e *Engine) fail(ctx context.Context, op string, failure flows.FailureKind, cause error, userID string) error {
	kind := kindFromFailure(failure)
	e.countTokenFailure(failure)

	l := e.logger(ctx)
	switch kind {
	case KindInternal:
		e.metrics.Inc(MetricStoreFailure)
		l.Error().Err(cause).Str("op", op).Str("user_id", userID).Msg("session operation failed")
	case KindSessionNotRecognized:
		l.Warn().Err(cause).Str("op", op).Str("user_id", userID).Msg("refresh token does not match a live session")
	default:
		l.Debug().Err(cause).Str("op", op).Str("user_id", userID).Str("kind", kind.String()).Msg("request rejected")
	}

	return newError(op, kind, cause)
}

func (e *Engine) countTokenFailure(failure flows.FailureKind) {
	switch failure {
	case flows.FailureTokenExpired:
		e.metrics.Inc(MetricTokenExpired)
	case flows.FailureTokenInvalid:
		e.metrics.Inc(MetricTokenInvalid)
	}
}

func kindFromFailure(f flows.FailureKind) ErrorKind {
	switch f {
	case flows.FailureTokenExpired:
		return KindTokenExpired
	case flows.FailureTokenInvalid:
		return KindTokenInvalid
	case flows.FailureSessionNotRecognized:
		return KindSessionNotRecognized
	case flows.FailureInvalidCredentials:
		return KindInvalidCredentials
	case flows.FailureInvalidOldPassword:
		return KindInvalidOldPassword
	case flows.FailurePasswordsIdentical:
		return KindPasswordsIdentical
	case flows.FailurePasswordRejected:
		return KindPasswordRejected
	case flows.FailureConflict:
		return KindConflict
	default:
		return KindInternal
	}
}

func toTokenPair(res flows.TokenResult) TokenPair {
	return TokenPair{
		UserID:           res.UserID,
		AccessToken:      res.Pair.Access,
		AccessExpiresAt:  res.Pair.AccessExpiresAt,
		RefreshToken:     res.Pair.Refresh.Token,
		RefreshExpiresAt: res.Pair.Refresh.ExpiresAt,
	}
}

func isConflict(err error) bool {
	return errors.Is(err, ErrLoginTaken) || errors.Is(err, ErrEmailTaken)
}

func (e *Engine) createUser(ctx context.Context, login, email, passwordHash string) (string, error) {
	rec, err := e.users.CreateUser(ctx, CreateUserInput{Login: login, Email: email, PasswordHash: passwordHash})
	if err != nil {
		return "", err
	}
	return rec.UserID, nil
}

func (e *Engine) findByIdentifier(ctx context.Context, identifier string) (flows.UserRecord, error) {
	rec, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flows.UserRecord{UserID: rec.UserID, PasswordHash: rec.PasswordHash}, nil
}

func (e *Engine) findByID(ctx context.Context, userID string) (flows.UserRecord, error) {
	rec, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flows.UserRecord{UserID: rec.UserID, PasswordHash: rec.PasswordHash}, nil
}
