package client

import (
	"errors"
	"fmt"
	"net/http"

	pkgstrings "alpaca/pkg/strings"
)

const maxErrorBody = 300

// APIError is returned for responses outside the 2xx range.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + pkgstrings.Truncate(e.Body, maxErrorBody)
	}
	return msg
}

// AuthError is returned when the login request is rejected.
type AuthError struct {
	URL        string
	Username   string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login to %s as %q failed: %v", e.URL, e.Username, e.Err)
	}
	return fmt.Sprintf("login to %s as %q failed with status %d", e.URL, e.Username, e.StatusCode)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	return HasStatus(err, http.StatusNotFound)
}

// HasStatus reports whether err is an APIError with the given status.
func HasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
