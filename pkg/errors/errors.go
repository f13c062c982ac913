// Package errors provides the error types used at the boundaries of the
// analyzer: input limits, configuration, history storage and remote source
// fetching. The analysis engine itself never returns errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// Base Error Types
// =============================================================================

// Error is the base error type for all codeguard errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "history.Save")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindAuthentication
	KindNotFound
	KindRateLimit
	KindTimeout
	KindCanceled
	KindNetwork
	KindRemote
	KindStorage
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindNetwork:
		return "network"
	case KindRemote:
		return "remote"
	case KindStorage:
		return "storage"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to the status code the HTTP API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return 499
	case KindNetwork, KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			if e.Message == "" {
				return fmt.Sprintf("%s: %v", e.Op, e.Err)
			}
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// =============================================================================
// Remote Error
// =============================================================================

// RemoteError is a non-2xx answer from a source provider (GitHub, GitLab).
type RemoteError struct {
	// Provider is the source provider name
	Provider string `json:"provider"`

	// StatusCode is the HTTP status code
	StatusCode int `json:"status_code"`

	// Message is the error message from the provider
	Message string `json:"message"`

	// RequestID is the provider request ID, when it sends one
	RequestID string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("[%s] %s: %s (request_id: %s)", e.Provider, http.StatusText(e.StatusCode), e.Message, e.RequestID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, http.StatusText(e.StatusCode), e.Message)
}

// Kind classifies the status code.
func (e *RemoteError) Kind() Kind {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return KindAuthentication
	case e.StatusCode == http.StatusNotFound:
		return KindNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindRemote
	}
}

// =============================================================================
// Constructors
// =============================================================================

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op or Message), error.
func E(args ...any) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with the operation that failed. The kind of the
// wrapped error is kept.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: GetKind(err), Op: op, Err: err}
}

// WrapWithMessage wraps an error with a message.
func WrapWithMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: GetKind(err), Message: message, Err: err}
}

// =============================================================================
// Error Checkers
// =============================================================================

// GetKind returns the Kind of the error, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}
	if re, ok := IsRemoteError(err); ok {
		return re.Kind()
	}
	return KindUnknown
}

// IsRemoteError checks if err is a RemoteError and returns it.
func IsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsRateLimitError checks if the error is a rate limit error.
func IsRateLimitError(err error) bool {
	return GetKind(err) == KindRateLimit
}

// IsNotFoundError checks if the error is a not found error.
func IsNotFoundError(err error) bool {
	return GetKind(err) == KindNotFound
}

// IsInvalidInput checks if the error was caused by caller input.
func IsInvalidInput(err error) bool {
	return GetKind(err) == KindInvalidInput
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	switch GetKind(err) {
	case KindRateLimit, KindNetwork, KindTimeout:
		return true
	}
	if re, ok := IsRemoteError(err); ok {
		// Retry on 5xx errors (except 501 Not Implemented)
		return re.StatusCode >= 500 && re.StatusCode != http.StatusNotImplemented
	}
	return false
}

// =============================================================================
// Common Errors
// =============================================================================

var (
	// ErrInputTooLarge is returned when source text exceeds the configured limit.
	ErrInputTooLarge = &Error{Kind: KindInvalidInput, Message: "input exceeds the size limit"}

	// ErrEmptyInput is returned by boundaries that require source text.
	ErrEmptyInput = &Error{Kind: KindInvalidInput, Message: "no source code given"}

	// ErrNotFound is returned when a history record or remote file is missing.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}

	// ErrRateLimited is returned when a remote provider rate limits us.
	ErrRateLimited = &Error{Kind: KindRateLimit, Message: "rate limited"}

	// ErrInvalidConfig is returned for invalid configuration.
	ErrInvalidConfig = &Error{Kind: KindInvalidInput, Message: "invalid configuration"}

	// ErrMissingToken is returned when a remote provider needs a token.
	ErrMissingToken = &Error{Kind: KindAuthentication, Message: "access token is required"}
)
