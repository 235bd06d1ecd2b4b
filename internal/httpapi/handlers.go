package httpapi

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/labstack/echo/v4"
)

type signUpRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type healthResponse struct {
	Status         string  `json:"status"`
	StoreLatencyMS float64 `json:"store_latency_ms"`
}

// SignUpHandler creates an account and starts its first session.
func (s *Server) SignUpHandler(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return writeBindError(c)
	}
	if errs := req.validate(); len(errs) > 0 {
		return writeDetail(c, http.StatusUnprocessableEntity, errs...)
	}

	pair, err := s.engine.SignUp(c.Request().Context(), goSession.SignUpInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeEngineError(c, err)
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusCreated, accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

// SignInHandler authenticates by login or email.
func (s *Server) SignInHandler(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return writeBindError(c)
	}
	if errs := req.validate(); len(errs) > 0 {
		return writeDetail(c, http.StatusUnprocessableEntity, errs...)
	}

	pair, err := s.engine.SignIn(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return writeEngineError(c, err)
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

// RefreshHandler rotates the refresh cookie and issues a new access token.
func (s *Server) RefreshHandler(c echo.Context) error {
	token, ok := refreshFromCookie(c)
	if !ok {
		return writeMissingCookie(c)
	}

	pair, err := s.engine.Refresh(c.Request().Context(), token)
	if err != nil {
		return writeEngineError(c, err)
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

// ChangePasswordHandler requires a bearer access token and the refresh cookie.
// Every other session of the user is revoked.
func (s *Server) ChangePasswordHandler(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return writeBindError(c)
	}
	if errs := req.validate(); len(errs) > 0 {
		return writeDetail(c, http.StatusUnprocessableEntity, errs...)
	}

	token, ok := refreshFromCookie(c)
	if !ok {
		return writeMissingCookie(c)
	}

	if err := s.engine.ChangePassword(c.Request().Context(), token, req.OldPassword, req.NewPassword); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// LogoutHandler ends the cookie's session and clears the cookie.
func (s *Server) LogoutHandler(c echo.Context) error {
	token, ok := refreshFromCookie(c)
	if !ok {
		return writeMissingCookie(c)
	}

	if err := s.engine.Logout(c.Request().Context(), token); err != nil {
		return writeEngineError(c, err)
	}

	clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAllHandler ends every session of the cookie's user.
func (s *Server) LogoutAllHandler(c echo.Context) error {
	token, ok := refreshFromCookie(c)
	if !ok {
		return writeMissingCookie(c)
	}

	if err := s.engine.LogoutAll(c.Request().Context(), token); err != nil {
		return writeEngineError(c, err)
	}

	clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// HealthHandler reports session store reachability.
func (s *Server) HealthHandler(c echo.Context) error {
	h := s.engine.Health(c.Request().Context())
	res := healthResponse{
		Status:         "ok",
		StoreLatencyMS: float64(h.StoreLatency) / float64(time.Millisecond),
	}
	if !h.StoreAvailable {
		res.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     authPrefix,
		MaxAge:   int(s.cfg.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     authPrefix,
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func refreshFromCookie(c echo.Context) (string, bool) {
	ck, err := c.Cookie(refreshCookie)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}
