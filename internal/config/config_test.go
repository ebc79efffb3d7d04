package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/store"
)

// isolate points HOME at an empty directory so no real config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AUTHFLOW_CONFIG", "")
	t.Setenv("JWT_SECRET_KEY", "")
	return home
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "http://localhost:3001/api", cfg.APIURL)
	assert.Equal(t, store.BackendFile, cfg.Store.Backend)
	assert.Equal(t, DefaultJWTSecret, cfg.Server.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL)
}

func TestLoadDefaultFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".authflow"), `
api_url: https://auth.example.com/api
store:
  backend: sqlite
  path: /tmp/session.db
log:
  level: debug
  format: json
server:
  address: ":8080"
  token_ttl: 2h
  database: /tmp/users.db
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/api", cfg.APIURL)
	assert.Equal(t, store.Config{Backend: store.BackendSQLite, Path: "/tmp/session.db"}, cfg.Store)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 2*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, "/tmp/users.db", cfg.Server.Database)
	assert.Equal(t, DefaultJWTSecret, cfg.Server.JWTSecret)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), `
api_url: https://file.example.com/api
store:
  backend: sqlite
`)
	t.Setenv("AUTHFLOW_API_URL", "https://env.example.com/api")
	t.Setenv("AUTHFLOW_STORE_BACKEND", "memory")
	t.Setenv("AUTHFLOW_LOG_LEVEL", "error")
	t.Setenv("AUTHFLOW_SERVER_TOKEN_TTL", "90m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.APIURL)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 90*time.Minute, cfg.Server.TokenTTL)
}

func TestLoadJWTSecret(t *testing.T) {
	isolate(t)

	t.Setenv("JWT_SECRET_KEY", "legacy")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Server.JWTSecret)

	t.Setenv("AUTHFLOW_SERVER_JWT_SECRET", "prefixed")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Server.JWTSecret)
}

func TestLoadAuthflowConfigVariable(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "api_url: http://127.0.0.1:9000/api\n")
	t.Setenv("AUTHFLOW_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/api", cfg.APIURL)
}

func TestLoadExpandsEnvInFile(t *testing.T) {
	isolate(t)
	t.Setenv("API_HOST", "api.internal")
	path := writeConfig(t, t.TempDir(), "api_url: http://${API_HOST}/api\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal/api", cfg.APIURL)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.ErrCodeConfigRead, errors.CodeOf(err))

	path := writeConfig(t, t.TempDir(), "api_url: [unterminated\n")
	_, err = Load(path)
	assert.Equal(t, errors.ErrCodeConfigParse, errors.CodeOf(err))

	t.Setenv("AUTHFLOW_SERVER_TOKEN_TTL", "forever")
	_, err = Load("")
	assert.Equal(t, errors.ErrCodeConfigParse, errors.CodeOf(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty backend", func(c *Config) { c.Store.Backend = "" }, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, false},
		{"missing api url", func(c *Config) { c.APIURL = "" }, false},
		{"relative api url", func(c *Config) { c.APIURL = "/api" }, false},
		{"ftp api url", func(c *Config) { c.APIURL = "ftp://host/api" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"empty secret", func(c *Config) { c.Server.JWTSecret = "" }, false},
		{"tiny ttl", func(c *Config) { c.Server.TokenTTL = time.Millisecond }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log = Log{Level: "debug", Format: "json"}

	lc := cfg.LoggerConfig()
	assert.Equal(t, log.LevelDebug, lc.Level)
	assert.Equal(t, log.FormatJSON, lc.Format)
}

func TestMarshalMasksSecret(t *testing.T) {
	cfg := Default()
	cfg.Server.JWTSecret = "super-secret"

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret")
	assert.Equal(t, "super-secret", cfg.Server.JWTSecret)

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, cfg.APIURL, back.APIURL)
	assert.Equal(t, cfg.Server.TokenTTL, back.Server.TokenTTL)
}
