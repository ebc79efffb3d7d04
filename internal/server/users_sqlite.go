package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/felixgeelhaar/authflow/internal/errors"
)

const usersSchema = `CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    INTEGER NOT NULL
)`

// SQLiteUsers is a UserRepository backed by a SQLite database.
type SQLiteUsers struct {
	db  *sql.DB
	now func() time.Time
}

var _ UserRepository = (*SQLiteUsers)(nil)

// OpenSQLiteUsers opens (creating if needed) the user database at path.
func OpenSQLiteUsers(ctx context.Context, path string) (*SQLiteUsers, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.ErrCodeServerStorage, "user database path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "create database directory", err)
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "open user database", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "ping user database", err)
	}
	if _, err := db.ExecContext(ctx, usersSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "create users table", err)
	}
	return &SQLiteUsers{db: db, now: time.Now}, nil
}

func (s *SQLiteUsers) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	created := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, is_active, created_at) VALUES (?, ?, 1, ?)`,
		email, passwordHash, created.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "read user id", err)
	}
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.UnixMilli(created.UnixMilli()).UTC(),
	}, nil
}

func (s *SQLiteUsers) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.one(ctx, `SELECT id, email, password_hash, is_active, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLiteUsers) ByID(ctx context.Context, id int64) (*User, error) {
	return s.one(ctx, `SELECT id, email, password_hash, is_active, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteUsers) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeServerStorage, "update user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeServerStorage, "update user", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteUsers) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteUsers) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close user database: %w", err)
	}
	return nil
}

func (s *SQLiteUsers) one(ctx context.Context, query string, arg any) (*User, error) {
	var (
		u       User
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &created)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeServerStorage, "query user", err)
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
