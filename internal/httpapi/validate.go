package httpapi

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	loginPattern    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z\d!@#$%&*]*$`)
)

const (
	loginMin       = 4
	loginMax       = 64
	passwordMin    = 8
	passwordMax    = 128
	identifierMax  = 320
	emailMaxLength = 320
)

// fieldError is one entry of the detail array.
type fieldError struct {
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
	Loc  []string `json:"loc,omitempty"`
}

func validLogin(s string) bool {
	return len(s) >= loginMin && len(s) <= loginMax && loginPattern.MatchString(s)
}

func validEmail(s string) bool {
	if len(s) > emailMaxLength || !strings.Contains(s, "@") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}

func validPassword(s string, checkCharset bool) bool {
	if len(s) < passwordMin || len(s) > passwordMax {
		return false
	}
	return !checkCharset || passwordPattern.MatchString(s)
}

func (r *signUpRequest) validate() []fieldError {
	r.Login = strings.TrimSpace(r.Login)
	r.Email = strings.TrimSpace(r.Email)

	var errs []fieldError
	if !validLogin(r.Login) {
		errs = append(errs, fieldError{
			Msg:  "Login must be 4-64 letters, digits or underscores",
			Type: "value_error.login",
			Loc:  []string{"body", "login"},
		})
	}
	if !validEmail(r.Email) {
		errs = append(errs, fieldError{
			Msg:  "Email is not a valid address",
			Type: "value_error.email",
			Loc:  []string{"body", "email"},
		})
	}
	if !validPassword(r.Password, true) {
		errs = append(errs, passwordFieldError("password"))
	}
	return errs
}

func (r *signInRequest) validate() []fieldError {
	r.Identifier = strings.TrimSpace(r.Identifier)

	var errs []fieldError
	if len(r.Identifier) > identifierMax || (!validEmail(r.Identifier) && !loginPattern.MatchString(r.Identifier)) {
		errs = append(errs, fieldError{
			Msg:  "Identifier must be a valid email or login (letters, digits, underscore)",
			Type: "value_error.identifier",
			Loc:  []string{"body", "identifier"},
		})
	}
	if !validPassword(r.Password, false) {
		errs = append(errs, passwordFieldError("password"))
	}
	return errs
}

func (r *changePasswordRequest) validate() []fieldError {
	var errs []fieldError
	if !validPassword(r.OldPassword, true) {
		errs = append(errs, passwordFieldError("old_password"))
	}
	if !validPassword(r.NewPassword, true) {
		errs = append(errs, passwordFieldError("new_password"))
	}
	return errs
}

func passwordFieldError(field string) fieldError {
	return fieldError{
		Msg:  "Password must be 8-128 characters from A-Z a-z 0-9 !@#$%&*",
		Type: "value_error.password",
		Loc:  []string{"body", field},
	}
}
