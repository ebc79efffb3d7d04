// Package store is the persistent session store: a small key/value surface
// holding at most one bearer token and one serialized user profile.
//
// Backends carry no session logic. The session machine is the only writer;
// everything else reads, and only at startup.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/authflow/internal/errors"
)

// Keys of the persisted session layout. Both are absent together when the
// session is unauthenticated.
const (
	KeyToken    = "token"
	KeyUserData = "userData"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is the key/value surface the session machine mirrors into.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Config selects and locates a backend.
type Config struct {
	// Backend is one of "memory", "file" or "sqlite". Empty means "file".
	Backend string `yaml:"backend,omitempty" env:"BACKEND"`

	// Path is the session file or database. Empty uses DefaultPath for the backend.
	Path string `yaml:"path,omitempty" env:"PATH"`
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close() error
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendFile
	}

	path := cfg.Path
	if path == "" && backend != BackendMemory {
		p, err := DefaultPath(backend)
		if err != nil {
			return nil, err
		}
		path = p
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLiteStore(ctx, path)
	default:
		return nil, errors.New(errors.ErrCodeStoreUnknownBackend, fmt.Sprintf("unknown store backend: %q", cfg.Backend)).
			WithSuggestion("Use one of: memory, file, sqlite")
	}
}

// DefaultPath returns ~/.authflow/session.json or ~/.authflow/session.db.
func DefaultPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreOpenFailed, "cannot resolve home directory", err)
	}
	name := "session.json"
	if backend == BackendSQLite {
		name = "session.db"
	}
	return filepath.Join(home, ".authflow", name), nil
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
