package flows

import (
	"context"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Refresh.Decode != nil && s.deps.Refresh.Sessions != nil
}

func (s Service) SignUp(ctx context.Context, req SignUpRequest) TokenResult {
	return RunSignUp(ctx, req, s.deps.SignUp)
}

func (s Service) SignIn(ctx context.Context, identifier, password string) TokenResult {
	return RunSignIn(ctx, identifier, password, s.deps.SignIn)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) TokenResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string) SessionResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, refreshToken string) SessionResult {
	return RunLogoutAll(ctx, refreshToken, s.deps.Logout)
}

func (s Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) SessionResult {
	return RunChangePassword(ctx, req, s.deps.ChangePassword)
}
