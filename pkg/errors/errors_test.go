package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnknown, "unknown"},
		{KindInvalidInput, "invalid_input"},
		{KindAuthentication, "authentication"},
		{KindNotFound, "not_found"},
		{KindRateLimit, "rate_limit"},
		{KindTimeout, "timeout"},
		{KindCanceled, "canceled"},
		{KindNetwork, "network"},
		{KindRemote, "remote"},
		{KindStorage, "storage"},
		{KindInternal, "internal"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindRateLimit, http.StatusTooManyRequests},
		{KindRemote, http.StatusBadGateway},
		{KindStorage, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%v.HTTPStatus() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "op and message and err",
			err:      &Error{Op: "history.Save", Message: "insert failed", Err: fmt.Errorf("database is locked")},
			expected: "history.Save: insert failed: database is locked",
		},
		{
			name:     "op and err",
			err:      &Error{Op: "history.Save", Err: fmt.Errorf("database is locked")},
			expected: "history.Save: database is locked",
		},
		{
			name:     "op and message",
			err:      &Error{Op: "history.Save", Message: "insert failed"},
			expected: "history.Save: insert failed",
		},
		{
			name:     "message and err",
			err:      &Error{Message: "insert failed", Err: fmt.Errorf("database is locked")},
			expected: "insert failed: database is locked",
		},
		{
			name:     "message only",
			err:      &Error{Message: "insert failed"},
			expected: "insert failed",
		},
		{
			name:     "empty error",
			err:      &Error{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := &Error{Kind: KindStorage, Message: "write failed"}
	err2 := &Error{Kind: KindStorage, Message: "different message"}
	err3 := &Error{Kind: KindNetwork, Message: "write failed"}

	if !err1.Is(err2) {
		t.Error("Errors with same Kind should match")
	}
	if err1.Is(err3) {
		t.Error("Errors with different Kind should not match")
	}
	if err1.Is(fmt.Errorf("some error")) {
		t.Error("Should not match non-Error type")
	}
}

func TestRemoteError(t *testing.T) {
	err := &RemoteError{Provider: "github", StatusCode: 404, Message: "Not Found", RequestID: "ABCD"}
	if got := err.Error(); got != "[github] Not Found: Not Found (request_id: ABCD)" {
		t.Errorf("Error() = %q", got)
	}

	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuthentication},
		{403, KindAuthentication},
		{404, KindNotFound},
		{429, KindRateLimit},
		{500, KindRemote},
	}
	for _, tt := range tests {
		re := &RemoteError{Provider: "gitlab", StatusCode: tt.status}
		if got := GetKind(fmt.Errorf("fetch: %w", re)); got != tt.want {
			t.Errorf("GetKind(status %d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestE_Constructor(t *testing.T) {
	underlying := fmt.Errorf("disk full")
	err := E(KindStorage, "history.Save", "cannot write record", underlying)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("E() should return *Error")
	}
	if e.Kind != KindStorage {
		t.Errorf("Kind = %v, want %v", e.Kind, KindStorage)
	}
	if e.Op != "history.Save" {
		t.Errorf("Op = %q", e.Op)
	}
	if e.Message != "cannot write record" {
		t.Errorf("Message = %q", e.Message)
	}
	if !errors.Is(err, underlying) {
		t.Error("E() should wrap the underlying error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "op") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	err := Wrap(ErrNotFound, "history.Get")
	if !IsNotFoundError(err) {
		t.Error("Wrap should keep the kind of the wrapped error")
	}
	if !strings.HasPrefix(err.Error(), "history.Get: ") {
		t.Errorf("Error() = %q", err.Error())
	}
	if WrapWithMessage(nil, "msg") != nil {
		t.Error("WrapWithMessage(nil) should return nil")
	}
}

func TestGetKind(t *testing.T) {
	if GetKind(fmt.Errorf("plain")) != KindUnknown {
		t.Error("plain errors have no kind")
	}
	if GetKind(fmt.Errorf("ctx: %w", ErrInputTooLarge)) != KindInvalidInput {
		t.Error("kind should be found through wrapping")
	}
	if GetKind(nil) != KindUnknown {
		t.Error("nil has no kind")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"network", E(KindNetwork, "dial"), true},
		{"timeout", E(KindTimeout, "read"), true},
		{"remote 503", &RemoteError{Provider: "github", StatusCode: 503}, true},
		{"remote 501", &RemoteError{Provider: "github", StatusCode: 501}, false},
		{"remote 404", &RemoteError{Provider: "github", StatusCode: 404}, false},
		{"invalid input", ErrEmptyInput, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
	}{
		{ErrInputTooLarge, KindInvalidInput},
		{ErrEmptyInput, KindInvalidInput},
		{ErrNotFound, KindNotFound},
		{ErrRateLimited, KindRateLimit},
		{ErrInvalidConfig, KindInvalidInput},
		{ErrMissingToken, KindAuthentication},
	}
	for _, tt := range tests {
		if tt.err.Kind != tt.kind {
			t.Errorf("%q: Kind = %v, want %v", tt.err.Message, tt.err.Kind, tt.kind)
		}
		if tt.err.Message == "" {
			t.Error("common errors need a message")
		}
	}
	if !IsInvalidInput(ErrInputTooLarge) {
		t.Error("ErrInputTooLarge should be invalid input")
	}
}

func BenchmarkGetKind(b *testing.B) {
	err := Wrap(ErrRateLimited, "source.Fetch")
	for b.Loop() {
		_ = GetKind(err)
	}
}
