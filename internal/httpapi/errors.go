package httpapi

import (
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/labstack/echo/v4"
)

type detailResponse struct {
	Detail []fieldError `json:"detail"`
}

func writeDetail(c echo.Context, status int, errs ...fieldError) error {
	return c.JSON(status, detailResponse{Detail: errs})
}

func writeBindError(c echo.Context) error {
	return writeDetail(c, http.StatusUnprocessableEntity, fieldError{
		Msg:  "Request body must be a JSON object",
		Type: "value_error.json",
		Loc:  []string{"body"},
	})
}

func writeMissingCookie(c echo.Context) error {
	return writeDetail(c, http.StatusUnauthorized, fieldError{
		Msg:  "Refresh token not found in cookies",
		Type: "token_error.refresh_token_not_found_in_cookies",
		Loc:  []string{"cookie", "token"},
	})
}

// writeEngineError maps an engine error kind to a status and detail body.
func writeEngineError(c echo.Context, err error) error {
	status, fe := describe(err)
	return writeDetail(c, status, fe)
}

func describe(err error) (int, fieldError) {
	switch goSession.KindOf(err) {
	case goSession.KindTokenExpired:
		return http.StatusUnauthorized, fieldError{Msg: "Token Expired", Type: "token_error.token_expired", Loc: []string{"cookie", "token"}}
	case goSession.KindTokenInvalid:
		return http.StatusUnauthorized, fieldError{Msg: "Token is invalid", Type: "token_error.invalid_token", Loc: []string{"cookie", "token"}}
	case goSession.KindSessionNotRecognized:
		return http.StatusUnauthorized, fieldError{Msg: "Refresh token JTI not found in whitelist", Type: "token_error.refresh_token_not_found_in_whitelist", Loc: []string{"cookie", "token"}}
	case goSession.KindInvalidCredentials:
		return http.StatusUnauthorized, fieldError{Msg: "Incorrect login or password", Type: "value_error.invalid_credentials", Loc: []string{"body", "password"}}
	case goSession.KindInvalidOldPassword:
		return http.StatusUnauthorized, fieldError{Msg: "Incorrect old password", Type: "value_error.invalid_old_password", Loc: []string{"body", "old_password"}}
	case goSession.KindPasswordsIdentical:
		return http.StatusBadRequest, fieldError{Msg: "New password must differ from old password", Type: "value_error.old_password_is_same_as_new", Loc: []string{"body", "new_password"}}
	case goSession.KindPasswordRejected:
		return http.StatusUnprocessableEntity, fieldError{Msg: "Password is not acceptable", Type: "value_error.password_rejected", Loc: []string{"body", "password"}}
	case goSession.KindConflict:
		if errors.Is(err, goSession.ErrEmailTaken) {
			return http.StatusConflict, fieldError{Msg: "Email is already in use", Type: "value_error.email_in_use", Loc: []string{"body", "email"}}
		}
		return http.StatusConflict, fieldError{Msg: "Login is already in use", Type: "value_error.login_in_use", Loc: []string{"body", "login"}}
	default:
		return http.StatusInternalServerError, fieldError{Msg: "Internal server error", Type: "server_error"}
	}
}

func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(status)
	} else {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}

	_ = writeDetail(c, status, fieldError{Msg: msg, Type: "http_error"})
}
