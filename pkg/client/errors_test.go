package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "status with code",
			err:  &Error{Kind: KindAPI, StatusCode: 409, Message: "duplicate", Code: "0800409"},
			want: "openphone api error (status 409): duplicate [0800409]",
		},
		{
			name: "no status",
			err:  &Error{Kind: KindValidation, Message: "maxResults must be between 1 and 100"},
			want: "openphone validation error: maxResults must be between 1 and 100",
		},
		{
			name: "with cause",
			err:  &Error{Kind: KindNetwork, Message: "network request failed", Err: errors.New("refused")},
			want: "openphone network error: network request failed: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := fmt.Errorf("context: %w", &Error{Kind: KindNetwork, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through *Error")
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindNetwork {
		t.Errorf("errors.As failed: %v", err)
	}
}

func TestKindHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		want bool
	}{
		{"unauthorized", &Error{Kind: KindAuthentication}, IsUnauthorized, true},
		{"forbidden", &Error{Kind: KindForbidden}, IsForbidden, true},
		{"not found", &Error{Kind: KindNotFound}, IsNotFound, true},
		{"rate limited", &Error{Kind: KindRateLimited}, IsRateLimited, true},
		{"server", &Error{Kind: KindServer}, IsServerError, true},
		{"network", &Error{Kind: KindNetwork}, IsNetwork, true},
		{"validation", &Error{Kind: KindValidation}, IsValidation, true},
		{"conflict kind", &Error{Kind: KindConflict}, IsConflict, true},
		{"conflict via api 409", &Error{Kind: KindAPI, StatusCode: 409}, IsConflict, true},
		{"api 422 is not conflict", &Error{Kind: KindAPI, StatusCode: 422}, IsConflict, false},
		{"bad request via api 400", &Error{Kind: KindAPI, StatusCode: 400}, IsBadRequest, true},
		{"bad request kind", &Error{Kind: KindBadRequest}, IsBadRequest, true},
		{"plain error", errors.New("x"), IsNotFound, false},
		{"nil", nil, IsNetwork, false},
		{"wrapped", fmt.Errorf("wrap: %w", &Error{Kind: KindNotFound}), IsNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.is(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	secs := 30
	if d, ok := RetryAfter(&Error{Kind: KindRateLimited, RetryAfter: &secs}); !ok || d != 30*time.Second {
		t.Errorf("RetryAfter() = %v, %v", d, ok)
	}
	if _, ok := RetryAfter(&Error{Kind: KindRateLimited}); ok {
		t.Error("RetryAfter() without hint should report false")
	}
	if _, ok := RetryAfter(&Error{Kind: KindServer, RetryAfter: &secs}); ok {
		t.Error("RetryAfter() should only apply to rate-limited errors")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("maxResults must be between %d and %d", 1, 50)
	if err.Kind != KindValidation {
		t.Errorf("Kind = %q", err.Kind)
	}
	if !strings.Contains(err.Error(), "between 1 and 50") {
		t.Errorf("Error() = %q", err.Error())
	}
}
