package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/authflow/internal/errors"
)

var (
	// ErrUserExists is returned by Create for a taken email.
	ErrUserExists = errors.New(errors.ErrCodeServerUserExists, "user already exists")

	// ErrUserNotFound is returned by lookups that match nothing.
	ErrUserNotFound = errors.New(errors.ErrCodeServerUserNotFound, "user not found")
)

// User is an account as stored by the server.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// userView is the public serialization. The password hash never leaves the server.
type userView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

func (u *User) view() userView {
	return userView{ID: u.ID, Email: u.Email, IsActive: u.IsActive}
}

// UserRepository stores accounts. Emails are unique and compared as given;
// callers normalize them first.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id int64) (*User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Ping(ctx context.Context) error
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryUsers is an in-process UserRepository.
type MemoryUsers struct {
	mu     sync.RWMutex
	byID   map[int64]*User
	nextID int64
	now    func() time.Time
}

var _ UserRepository = (*MemoryUsers)(nil)

// NewMemoryUsers creates an empty repository.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[int64]*User), now: time.Now}
}

func (m *MemoryUsers) Create(_ context.Context, email, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.Email == email {
			return nil, ErrUserExists
		}
	}
	m.nextID++
	u := &User{
		ID:           m.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    m.now().UTC(),
	}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *MemoryUsers) ByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUsers) ByID(_ context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUsers) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (m *MemoryUsers) Ping(context.Context) error { return nil }

// Emails lists stored addresses in ID order.
func (m *MemoryUsers) Emails() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.byID[id].Email)
	}
	return out
}
