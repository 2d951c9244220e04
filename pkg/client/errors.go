package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is wrapped by the network error returned once every
	// retry attempt has failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends during a request
	// or a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimitCooldown is wrapped when a request is refused locally
	// because a shared rate-limit cooldown is still active.
	ErrRateLimitCooldown = errors.New("rate limit cooldown active")

	// ErrInvalidConfig is returned by New for unusable configuration values.
	ErrInvalidConfig = errors.New("invalid client configuration")
)

// Kind discriminates the variants of Error.
type Kind string

const (
	// KindAuthentication represents 401 responses and unusable credentials.
	KindAuthentication Kind = "authentication"

	// KindForbidden represents 403 responses.
	KindForbidden Kind = "forbidden"

	// KindNotFound represents 404 responses.
	KindNotFound Kind = "not_found"

	// KindConflict represents a state or uniqueness conflict.
	KindConflict Kind = "conflict"

	// KindRateLimited represents 429 responses and locally enforced cooldowns.
	KindRateLimited Kind = "rate_limited"

	// KindValidation represents input rejected before any request was sent.
	KindValidation Kind = "validation"

	// KindBadRequest represents a request that could not be built.
	KindBadRequest Kind = "bad_request"

	// KindServer represents 5xx responses.
	KindServer Kind = "server"

	// KindAPI represents any other 4xx response.
	KindAPI Kind = "api"

	// KindNetwork represents transport failures (refused, timeout, DNS, TLS).
	KindNetwork Kind = "network"
)

// Error is the single error type surfaced by the client. Kind selects the
// variant; the remaining fields are populated when the server supplied them.
type Error struct {
	Kind       Kind
	StatusCode int

	// Machine-readable error code, title, message, and detail list from the
	// response's "error" object.
	Code    string
	Title   string
	Message string
	Errors  []any

	// Docs links to the provider documentation for this error.
	Docs string

	// Trace is the provider trace id, useful in support requests.
	Trace string

	// RetryAfter is the Retry-After hint in seconds, RateLimited only.
	RetryAfter *int

	// Body is the parsed response body (empty when it was not JSON).
	Body map[string]any

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}

	var s string
	if e.StatusCode > 0 {
		s = fmt.Sprintf("openphone %s error (status %d): %s", e.Kind, e.StatusCode, msg)
	} else {
		s = fmt.Sprintf("openphone %s error: %s", e.Kind, msg)
	}

	if e.Err != nil {
		return s + ": " + e.Err.Error()
	}
	return s
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HasKind reports whether err is an *Error of the given kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool { return HasKind(err, KindAuthentication) }

// IsForbidden reports whether err is a 403.
func IsForbidden(err error) bool { return HasKind(err, KindForbidden) }

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return HasKind(err, KindNotFound) }

// IsRateLimited reports whether err is a 429 or a local cooldown refusal.
func IsRateLimited(err error) bool { return HasKind(err, KindRateLimited) }

// IsServerError reports whether err is a 5xx.
func IsServerError(err error) bool { return HasKind(err, KindServer) }

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool { return HasKind(err, KindNetwork) }

// IsValidation reports whether err was raised by local input validation.
func IsValidation(err error) bool { return HasKind(err, KindValidation) }

// IsConflict reports whether err is a conflict, including a generic API
// error carrying status 409.
func IsConflict(err error) bool {
	return HasKind(err, KindConflict) || hasAPIStatus(err, 409)
}

// IsBadRequest reports whether err is a bad request, including a generic
// API error carrying status 400.
func IsBadRequest(err error) bool {
	return HasKind(err, KindBadRequest) || hasAPIStatus(err, 400)
}

func hasAPIStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAPI && e.StatusCode == status
}

// RetryAfter returns the server's Retry-After hint for a rate-limited error.
// The second result is false when err is not rate limited or no hint was sent.
func RetryAfter(err error) (time.Duration, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRateLimited || e.RetryAfter == nil {
		return 0, false
	}
	return time.Duration(*e.RetryAfter) * time.Second, true
}

// NewValidationError builds a KindValidation error. Resource façades use it
// to reject input before any request is sent.
func NewValidationError(format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}
