package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error is the structured error type for gitlab-search.
// It carries enough context to decide on retries, log the failure and
// present it to the user.
type Error struct {
	// Code is the unique error code (e.g., "ERR_303_RATE_LIMITED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// RetryAfter is the minimum wait the server asked for (429 responses).
	RetryAfter time.Duration

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works against sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// WithRetryAfter records a server-requested wait.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NetworkError creates a retryable network error.
func NetworkError(message string, cause error) *Error {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// TimeoutError creates a retryable per-call timeout error.
func TimeoutError(message string, cause error) *Error {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// RateLimitedError creates a retryable rate-limit error.
func RateLimitedError(message string, retryAfter time.Duration) *Error {
	return New(ErrCodeRateLimited, message, nil).WithRetryAfter(retryAfter)
}

// DecodeError creates an error for a malformed response body.
// Decode errors are never retried.
func DecodeError(message string, cause error) *Error {
	return New(ErrCodeDecodeFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if the chain contains an Error with Retryable set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// IsTransport reports whether err is a network-category error.
func IsTransport(err error) bool {
	return GetCategory(err) == CategoryNetwork
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if e, ok := As(err); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the chain.
// Returns empty string if there is no Error in it.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from the chain.
func GetCategory(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}

// RetryAfter returns the server-requested wait carried by err, if any.
func RetryAfter(err error) time.Duration {
	if e, ok := As(err); ok {
		return e.RetryAfter
	}
	return 0
}
