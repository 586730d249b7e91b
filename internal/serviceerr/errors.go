package serviceerr

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotFound = errors.New("not found")
var ErrInvalidState = errors.New("invalid state")
var ErrTokenExchangeFailed = errors.New("token exchange failed")
var ErrUnauthorized = errors.New("unauthorized")

// ErrMissingIDToken is returned when a successful token response carries no
// id_token.
var ErrMissingIDToken = fmt.Errorf("%w: no id_token in the response", ErrTokenExchangeFailed)

// TokenExchangeError is returned when the identity provider answers the
// token request with a non-success status.
type TokenExchangeError struct {
	StatusCode       int
	ErrorCode        string
	ErrorDescription string
}

func (e *TokenExchangeError) Error() string {
	msg := fmt.Sprintf("%s: %d", ErrTokenExchangeFailed, e.StatusCode)
	if e.ErrorCode != "" {
		msg += " " + e.ErrorCode
	}
	if e.ErrorDescription != "" {
		msg += ": " + e.ErrorDescription
	}

	return msg
}

func (e *TokenExchangeError) Is(target error) bool {
	return target == ErrTokenExchangeFailed
}

// UnauthorizedError carries the HTTP status (401 or 403) the API answered with.
type UnauthorizedError struct {
	StatusCode int
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s (%d)", ErrUnauthorized, e.StatusCode)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// IsUnauthorizedStatus reports whether the status signals an invalid or
// expired session.
func IsUnauthorizedStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
