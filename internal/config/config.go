// Package config loads authflow settings. Sources are applied in order,
// later ones winning: built-in defaults, the YAML file
// (~/.authflow/config.yaml), then AUTHFLOW_* environment variables.
// Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/authflow/internal/api"
	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/server"
	"github.com/felixgeelhaar/authflow/internal/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AUTHFLOW_"

// DefaultJWTSecret signs demo server tokens when nothing else is configured.
const DefaultJWTSecret = "default-secret-key"

// Config is the full authflow configuration.
type Config struct {
	APIURL string       `yaml:"api_url,omitempty" env:"API_URL"`
	Store  store.Config `yaml:"store,omitempty" envPrefix:"STORE_"`
	Log    Log          `yaml:"log,omitempty" envPrefix:"LOG_"`
	Server Server       `yaml:"server,omitempty" envPrefix:"SERVER_"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level,omitempty" env:"LEVEL"`
	Format string `yaml:"format,omitempty" env:"FORMAT"`
}

// Server configures the demo API started by "authflow serve".
type Server struct {
	Address   string        `yaml:"address,omitempty" env:"ADDRESS"`
	JWTSecret string        `yaml:"jwt_secret,omitempty" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl,omitempty" env:"TOKEN_TTL"`
	// Database is a SQLite path. Empty keeps users in memory.
	Database string `yaml:"database,omitempty" env:"DATABASE"`
}

// legacyEnv holds variables read without the prefix.
type legacyEnv struct {
	JWTSecretKey string `env:"JWT_SECRET_KEY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL: api.DefaultBaseURL,
		Store:  store.Config{Backend: store.BackendFile},
		Log:    Log{Level: "warn", Format: "text"},
		Server: Server{
			Address:   server.DefaultAddress,
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  server.DefaultTokenTTL,
		},
	}
}

// DefaultPath returns ~/.authflow/config.yaml, or AUTHFLOW_CONFIG if set.
func DefaultPath() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".authflow", "config.yaml")
}

// Load builds the configuration. With an empty path the default file is
// used if it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := loadFile(path, explicit, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, explicit bool, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return errors.Wrap(errors.ErrCodeConfigRead, fmt.Sprintf("failed to read config file: %s", path), err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errors.NewConfigParseError(path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		return errors.Wrap(errors.ErrCodeConfigParse, "parse env", err)
	}
	if legacy.JWTSecretKey != "" {
		cfg.Server.JWTSecret = legacy.JWTSecretKey
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Wrap(errors.ErrCodeConfigParse, "parse env", err)
	}
	return nil
}

// Validate checks enumerations and the API URL.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, validation.Required, validation.By(httpURL)),
	)
	if err == nil {
		err = validation.ValidateStruct(&c.Store,
			validation.Field(&c.Store.Backend, validation.In(store.BackendMemory, store.BackendFile, store.BackendSQLite)),
		)
	}
	if err == nil {
		err = validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "warning", "error")),
			validation.Field(&c.Log.Format, validation.In("text", "json")),
		)
	}
	if err == nil {
		err = validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Address, validation.Required),
			validation.Field(&c.Server.JWTSecret, validation.Required),
			validation.Field(&c.Server.TokenTTL, validation.Min(time.Second)),
		)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid configuration", err).
			WithSuggestion("Check ~/.authflow/config.yaml and AUTHFLOW_* environment variables")
	}
	return nil
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// LoggerConfig maps the log settings onto a logger configuration.
func (c Config) LoggerConfig() log.Config {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(c.Log.Level)
	lc.Format = log.ParseFormat(c.Log.Format)
	return lc
}

// Marshal renders cfg as YAML, with the JWT secret masked.
func (c Config) Marshal() ([]byte, error) {
	masked := c
	if masked.Server.JWTSecret != "" {
		masked.Server.JWTSecret = strings.Repeat("*", 8)
	}
	return yaml.Marshal(masked)
}
