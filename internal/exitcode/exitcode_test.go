package exitcode

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/authflow/internal/api"
	"github.com/felixgeelhaar/authflow/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"plain error", stderrors.New("boom"), GeneralError},
		{"cancelled", fmt.Errorf("login: %w", context.Canceled), Interrupted},
		{"not logged in", errors.NewNotAuthenticatedError(), AuthError},
		{
			"wrapped not logged in",
			fmt.Errorf("profile: %w", errors.NewNotAuthenticatedError()),
			AuthError,
		},
		{
			"rejected credentials",
			&api.Error{Kind: api.KindServer, Status: 401, Message: "Invalid email or password"},
			AuthError,
		},
		{
			"duplicate signup",
			&api.Error{Kind: api.KindServer, Status: 409, Message: "User already exists with this email"},
			GeneralError,
		},
		{
			"network",
			fmt.Errorf("validate: %w", &api.Error{Kind: api.KindNetwork, Message: api.MsgNetwork}),
			NetworkError,
		},
		{"unexpected", &api.Error{Kind: api.KindUnexpected, Message: api.MsgUnexpected}, GeneralError},
		{"config parse", errors.NewConfigParseError("c.yaml", stderrors.New("bad")), ConfigError},
		{"unknown backend", errors.New(errors.ErrCodeStoreUnknownBackend, "unknown store backend"), ConfigError},
		{"unknown flag", stderrors.New("unknown flag: --nope"), UsageError},
		{"unknown command", stderrors.New(`unknown command "lgoin" for "authflow"`), UsageError},
		{"args", stderrors.New("accepts 0 arg(s), received 1"), UsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineExitCode(tt.err))
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	for _, code := range []int{Success, GeneralError, UsageError, AuthError, NetworkError, ConfigError, Interrupted} {
		assert.NotEqual(t, "Unknown error", GetExitCodeDescription(code), "code %d", code)
	}
	assert.Equal(t, "Unknown error", GetExitCodeDescription(99))
}
