package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// Credentials collected from flags or prompts.
type Credentials struct {
	Email    string
	Password string
}

// Missing reports whether either field is empty.
func (c Credentials) Missing() bool {
	return strings.TrimSpace(c.Email) == "" || c.Password == ""
}

// CredentialsForm builds a form asking for whichever of c's fields are
// empty. With confirm set the password is asked twice. It returns nil when
// nothing is missing.
func CredentialsForm(c *Credentials, confirm bool) *huh.Form {
	var fields []huh.Field

	if strings.TrimSpace(c.Email) == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&c.Email).
			Validate(required("email")))
	}

	if c.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(required("password")))

		if confirm {
			var again string
			fields = append(fields, huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&again).
				Validate(func(s string) error {
					if s != c.Password {
						return fmt.Errorf("passwords do not match")
					}
					return nil
				}))
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...))
}

// PromptCredentials fills the empty fields of c interactively.
func PromptCredentials(c *Credentials, confirm bool) error {
	form := CredentialsForm(c, confirm)
	if form == nil {
		return nil
	}
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	return isTerminal(os.Stdin)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt reports whether prompts may be shown. They are disabled by
// AUTHFLOW_NO_INPUT, in CI, and when stdin is not a terminal.
func ShouldPrompt() bool {
	for _, envVar := range []string{"AUTHFLOW_NO_INPUT", "CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(envVar) != "" {
			return false
		}
	}
	return IsInteractive()
}
