package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeSessionClosed, "machine closed")

	assert.Equal(t, ErrCodeSessionClosed, err.Code)
	assert.Equal(t, "machine closed", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, "[SESSION-003] machine closed", err.Error())
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCodeStoreWriteFailed, "failed to write", cause)

	assert.Equal(t, ErrCodeStoreWriteFailed, err.Code)
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}

func TestWithSuggestionDoesNotMutateSentinel(t *testing.T) {
	sentinel := New(ErrCodeSessionStaleOutcome, "stale")

	derived := sentinel.WithSuggestion("retry")

	assert.Empty(t, sentinel.Suggestions)
	assert.Equal(t, []string{"retry"}, derived.Suggestions)
	assert.Contains(t, derived.Error(), "Suggestions:")
	assert.Contains(t, derived.Error(), "retry")
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(ErrCodeSessionUnrecognizedEvent, "unrecognized event")
	wrapped := fmt.Errorf("dispatch: %w", sentinel.WithCause(fmt.Errorf("boom")))

	assert.True(t, Is(wrapped, sentinel))
	assert.False(t, Is(wrapped, New(ErrCodeSessionClosed, "closed")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))

	err := fmt.Errorf("outer: %w", NewStoreReadError("file", "token", fmt.Errorf("eperm")))
	assert.Equal(t, ErrCodeStoreReadFailed, CodeOf(err))

	var ae *AuthflowError
	require.True(t, As(err, &ae))
	assert.Contains(t, ae.Message, `"token"`)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AuthflowError
		code ErrorCode
	}{
		{"store write", NewStoreWriteError("file", "token", fmt.Errorf("x")), ErrCodeStoreWriteFailed},
		{"store read", NewStoreReadError("sqlite", "userData", fmt.Errorf("x")), ErrCodeStoreReadFailed},
		{"config parse", NewConfigParseError("/tmp/c.yaml", fmt.Errorf("x")), ErrCodeConfigParse},
		{"not authenticated", NewNotAuthenticatedError(), ErrCodeSessionNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Suggestions)
		})
	}
}
