package spot

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a non-success response from the Spot API.
type APIError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Message    string `json:"message"     yaml:"message"`
	Body       string `json:"body,omitempty" yaml:"body,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Body)
	}

	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// AuthError is raised when authentication or token refresh fails.
type AuthError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Err)
	}

	return "auth: " + e.Message
}

// Unwrap exposes the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// RequestError is raised when a request fails at the transport level
// after retries are exhausted, or when a success response cannot be
// decoded into the expected shape.
type RequestError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request: %s: %v", e.Message, e.Err)
	}

	return "request: " + e.Message
}

// Unwrap exposes the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// ConfigError is raised when configuration cannot be loaded or validated.
type ConfigError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Message, e.Err)
	}

	return "config: " + e.Message
}

// Unwrap exposes the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrBaseURLRequired       = errors.New("base URL is required")
	ErrRefreshTokenRequired  = errors.New("refresh_token is required to authenticate")
	ErrOrganizationRequired  = errors.New("organization is required")
	ErrOrganizationNotFound  = errors.New("organization not found")
	ErrRegionNotFound        = errors.New("region not found")
	ErrServerClassNotFound   = errors.New("server class not found")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrClientClosed          = errors.New("client is closed")
	ErrCacheKeyNotFound      = errors.New("cache: key not found")
	ErrCacheEntryExpired     = errors.New("cache: entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsUnauthorized reports whether err is an API 401 or 403.
func IsUnauthorized(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}

	return false
}

// IsTransient reports whether err reflects an outcome that is worth
// retrying later: a 429/5xx API response or a transport-level failure.
func IsTransient(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}

	reqErr := &RequestError{}

	return errors.As(err, &reqErr)
}
