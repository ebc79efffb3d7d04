package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionUnrecognizedEvent ErrorCode = "SESSION-001"
	ErrCodeSessionInvalidPayload    ErrorCode = "SESSION-002"
	ErrCodeSessionClosed            ErrorCode = "SESSION-003"
	ErrCodeSessionStaleOutcome      ErrorCode = "SESSION-004"
	ErrCodeSessionNotAuthenticated  ErrorCode = "SESSION-005"
	ErrCodeSessionSyncFailed        ErrorCode = "SESSION-006"

	// Store errors (STORE-001 to STORE-099)
	ErrCodeStoreUnknownBackend ErrorCode = "STORE-001"
	ErrCodeStoreReadFailed     ErrorCode = "STORE-002"
	ErrCodeStoreWriteFailed    ErrorCode = "STORE-003"
	ErrCodeStoreCorrupt        ErrorCode = "STORE-004"
	ErrCodeStoreOpenFailed     ErrorCode = "STORE-005"

	// API errors (API-001 to API-099)
	ErrCodeAPINetwork    ErrorCode = "API-001"
	ErrCodeAPIRejected   ErrorCode = "API-002"
	ErrCodeAPIUnexpected ErrorCode = "API-003"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigRead    ErrorCode = "CONFIG-001"
	ErrCodeConfigParse   ErrorCode = "CONFIG-002"
	ErrCodeConfigInvalid ErrorCode = "CONFIG-003"

	// Server errors (SERVER-001 to SERVER-099)
	ErrCodeServerUserExists   ErrorCode = "SERVER-001"
	ErrCodeServerUserNotFound ErrorCode = "SERVER-002"
	ErrCodeServerStorage      ErrorCode = "SERVER-003"
	ErrCodeServerToken        ErrorCode = "SERVER-004"
)

// AuthflowError represents an error with a code and optional remediation hints
type AuthflowError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *AuthflowError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AuthflowError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AuthflowError carrying the same code.
// This lets package-level sentinels match copies that gained a cause or
// suggestions on the way up.
func (e *AuthflowError) Is(target error) bool {
	t, ok := target.(*AuthflowError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AuthflowError
func New(code ErrorCode, message string) *AuthflowError {
	return &AuthflowError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AuthflowError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AuthflowError {
	return &AuthflowError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion returns a copy of the error with the suggestion appended.
// Sentinels are shared, so the receiver is never mutated.
func (e *AuthflowError) WithSuggestion(suggestion string) *AuthflowError {
	return e.WithSuggestions(suggestion)
}

// WithSuggestions returns a copy of the error with the suggestions appended
func (e *AuthflowError) WithSuggestions(suggestions ...string) *AuthflowError {
	cp := *e
	cp.Suggestions = append(append([]string(nil), e.Suggestions...), suggestions...)
	return &cp
}

// WithCause returns a copy of the error wrapping cause
func (e *AuthflowError) WithCause(cause error) *AuthflowError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// CodeOf returns the code of the first AuthflowError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ae *AuthflowError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Is is errors.Is, re-exported so callers importing this package under the
// name "errors" keep access to it.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As, re-exported for the same reason as Is.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// NewStoreWriteError creates a persistent store write failure
func NewStoreWriteError(backend, key string, cause error) *AuthflowError {
	return Wrap(ErrCodeStoreWriteFailed, fmt.Sprintf("%s store: failed to write %q", backend, key), cause).
		WithSuggestion("Check that the session directory exists and is writable").
		WithSuggestion("Run 'authflow logout' to reset the stored session")
}

// NewStoreReadError creates a persistent store read failure
func NewStoreReadError(backend, key string, cause error) *AuthflowError {
	return Wrap(ErrCodeStoreReadFailed, fmt.Sprintf("%s store: failed to read %q", backend, key), cause).
		WithSuggestion("Check the permissions of the session file")
}

// NewConfigParseError creates a configuration parse error
func NewConfigParseError(path string, cause error) *AuthflowError {
	return Wrap(ErrCodeConfigParse, fmt.Sprintf("failed to parse config file: %s", path), cause).
		WithSuggestion("Check the YAML syntax of the config file").
		WithSuggestion("Run 'authflow --config /dev/null <command>' to ignore it")
}

// NewNotAuthenticatedError creates the error returned when an operation
// needs a session token and none is held
func NewNotAuthenticatedError() *AuthflowError {
	return New(ErrCodeSessionNotAuthenticated, "not logged in").
		WithSuggestion("Run 'authflow login' to authenticate")
}
