package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/authflow/internal/exitcode"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/server"
)

type harness struct {
	t       *testing.T
	apiURL  string
	session string
	users   *server.MemoryUsers
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AUTHFLOW_CONFIG", "")
	t.Setenv("AUTHFLOW_NO_INPUT", "1")
	t.Setenv("AUTHFLOW_PASSWORD", "")
	t.Cleanup(func() { log.SetDefaultLogger(nil) })

	users := server.NewMemoryUsers()
	srv := httptest.NewServer(server.New(users, server.NewTokenIssuer("cli-test", time.Hour), server.Config{},
		server.WithLogger(log.Nop()),
		server.WithBcryptCost(bcrypt.MinCost),
	).Handler())
	t.Cleanup(srv.Close)

	return &harness{
		t:       t,
		apiURL:  srv.URL + "/api",
		session: filepath.Join(home, "session.json"),
		users:   users,
	}
}

// exec runs the CLI with the harness's API and session file.
func (h *harness) exec(args ...string) (string, error) {
	h.t.Helper()
	full := append([]string{"--api-url", h.apiURL, "--store", "file", "--store-path", h.session}, args...)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

func (h *harness) status() statusView {
	h.t.Helper()
	out, err := h.exec("status", "--json")
	require.NoError(h.t, err)
	var view statusView
	require.NoError(h.t, json.Unmarshal([]byte(out), &view), out)
	return view
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)

	out, err := h.exec("hello")
	require.NoError(t, err)
	assert.Contains(t, out, "came from the backend")

	out, err = h.exec("signup", "-e", "a@b.com", "-p", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "User created successfully\n", out)

	// Signing up leaves the process signed out.
	assert.False(t, h.status().Authenticated)

	out, err = h.exec("login", "--email", "a@b.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as a@b.com\n", out)

	view := h.status()
	assert.True(t, view.Authenticated)
	require.NotNil(t, view.User)
	assert.Equal(t, "a@b.com", view.User.Email)
	assert.NotEmpty(t, view.TokenFingerprint)

	out, err = h.exec("profile")
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "a@b.com"`)

	_, err = h.exec("status", "--validate")
	require.NoError(t, err)

	out, err = h.exec("logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	assert.Equal(t, statusView{}, h.status())

	out, err = h.exec("logout")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestValidateEndsRejectedSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec("signup", "-e", "a@b.com", "-p", "secret1")
	require.NoError(t, err)
	_, err = h.exec("login", "-e", "a@b.com", "-p", "secret1")
	require.NoError(t, err)

	require.NoError(t, h.users.SetActive(context.Background(), 1, false))

	// Without validation the stored session is trusted.
	assert.True(t, h.status().Authenticated)

	_, err = h.exec("status", "--validate")
	require.Error(t, err)
	assert.Equal(t, "User not found or inactive", err.Error())
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))

	assert.False(t, h.status().Authenticated)
}

func TestProfileRejectionEndsSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec("signup", "-e", "a@b.com", "-p", "secret1")
	require.NoError(t, err)
	_, err = h.exec("login", "-e", "a@b.com", "-p", "secret1")
	require.NoError(t, err)

	require.NoError(t, h.users.SetActive(context.Background(), 1, false))

	_, err = h.exec("profile")
	require.Error(t, err)
	assert.Equal(t, "User not found or inactive", err.Error())
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))

	assert.Equal(t, statusView{}, h.status())
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec("login", "-e", "a@b.com", "-p", "wrong1")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))

	// Notices are not persisted; the next process starts clean.
	assert.Equal(t, statusView{}, h.status())

	_, err = h.exec("login", "-e", "a@b.com")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))

	t.Setenv("AUTHFLOW_PASSWORD", "wrong1")
	_, err = h.exec("login", "-e", "a@b.com")
	assert.Equal(t, "Invalid email or password", err.Error())
}

func TestUnreachableAPI(t *testing.T) {
	h := newHarness(t)
	h.apiURL = "http://127.0.0.1:1/api"

	_, err := h.exec("hello")
	require.Error(t, err)
	assert.Equal(t, "connection error: check your network connection", err.Error())
	assert.Equal(t, exitcode.NetworkError, exitcode.DetermineExitCode(err))
}

func TestProfileRequiresLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec("profile")
	require.Error(t, err)
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))
}

func TestConfigErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec("--store", "redis", "status")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))

	_, err = h.exec("--config", filepath.Join(t.TempDir(), "missing.yaml"), "status")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))

	_, err = h.exec("nonsense")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestConfigShowMasksSecret(t *testing.T) {
	h := newHarness(t)
	t.Setenv("JWT_SECRET_KEY", "do-not-print")

	out, err := h.exec("config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "do-not-print")
	assert.Contains(t, out, "api_url: "+h.apiURL)
	assert.Contains(t, out, "path: "+h.session)

	out, err = h.exec("config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(".authflow", "config.yaml"))
}

func TestVersionCommand(t *testing.T) {
	newHarness(t)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{}))
	assert.Regexp(t, `^authflow \S+\n$`, stdout.String())

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"version", "--json"}, &stdout, &bytes.Buffer{}))
	var info map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.Contains(t, info, "go_version")
}
