package exitcode

import (
	"context"
	"os"
	"strings"

	"github.com/felixgeelhaar/authflow/internal/errors"
)

// Process exit codes.
const (
	Success      = 0
	GeneralError = 1
	// UsageError covers bad flags, missing args and unknown commands.
	UsageError = 2
	// AuthError covers missing, rejected or expired credentials.
	AuthError    = 3
	NetworkError = 4
	ConfigError  = 5
	// Interrupted is 128 + SIGINT.
	Interrupted = 130
)

var descriptions = map[int]string{
	Success:      "Success",
	GeneralError: "General error",
	UsageError:   "Usage error (invalid flags or arguments)",
	AuthError:    "Authentication error",
	NetworkError: "Network error",
	ConfigError:  "Configuration error",
	Interrupted:  "Interrupted",
}

var byCode = map[errors.ErrorCode]int{
	errors.ErrCodeSessionNotAuthenticated: AuthError,
	errors.ErrCodeServerToken:             AuthError,
	errors.ErrCodeAPINetwork:              NetworkError,
	errors.ErrCodeConfigRead:              ConfigError,
	errors.ErrCodeConfigParse:             ConfigError,
	errors.ErrCodeConfigInvalid:           ConfigError,
	errors.ErrCodeStoreUnknownBackend:     ConfigError,
}

// cobra reports usage problems as plain errors.
var usageMarkers = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"required flag",
	"invalid argument",
	"accepts ",
}

// coded is implemented by errors that carry a code without being an
// *errors.AuthflowError, such as API errors.
type coded interface {
	Code() errors.ErrorCode
}

type unauthorized interface {
	Unauthorized() bool
}

// Exit terminates the process.
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with DetermineExitCode(err).
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps err to an exit code using its error code where one
// is attached, falling back to cobra's usage messages.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	var u unauthorized
	if errors.As(err, &u) && u.Unauthorized() {
		return AuthError
	}

	code := errors.CodeOf(err)
	if code == "" {
		var c coded
		if errors.As(err, &c) {
			code = c.Code()
		}
	}

	if exit, ok := byCode[code]; ok {
		return exit
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range usageMarkers {
		if strings.Contains(msg, marker) {
			return UsageError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown error"
}
