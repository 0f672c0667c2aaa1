package api

import (
	"errors"
	"fmt"
)

// AuthenticationError indicates bad credentials or an expired refresh token.
type AuthenticationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication error: %s", e.Reason)
}

// Unwrap returns the wrapped error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// APIError indicates a failed API request: non-2xx response, request
// timeout, network failure, or malformed payload.
type APIError struct {
	Reason  string
	Timeout bool
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("api error: %s", e.Reason)
}

// Unwrap returns the wrapped error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is an AuthenticationError.
func IsAuthError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsAPIError reports whether err is an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsTimeout reports whether err is a timeout-class APIError.
func IsTimeout(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Timeout
}
