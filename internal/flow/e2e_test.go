package flow

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/authflow/internal/api"
	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/server"
	"github.com/felixgeelhaar/authflow/internal/session"
	"github.com/felixgeelhaar/authflow/internal/store"
)

func TestEndToEndAgainstDemoServer(t *testing.T) {
	ctx := context.Background()

	users := server.NewMemoryUsers()
	issuer := server.NewTokenIssuer("e2e-secret", time.Hour)
	srv := httptest.NewServer(server.New(users, issuer, server.Config{},
		server.WithLogger(log.Nop()),
		server.WithBcryptCost(bcrypt.MinCost),
	).Handler())
	defer srv.Close()

	client := api.NewClient(srv.URL+"/api", api.WithLogger(log.Nop()))
	sessionPath := filepath.Join(t.TempDir(), "session.json")

	open := func() *Controller {
		m, err := session.New(ctx, store.NewFileStore(sessionPath), session.WithLogger(log.Nop()))
		require.NoError(t, err)
		t.Cleanup(m.Close)
		return New(m, client, WithLogger(log.Nop()))
	}
	c := open()

	rec, err := c.Signup(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", rec.Message)
	assert.False(t, rec.IsAuthenticated)

	_, err = c.Signup(ctx, "a@b.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, "User already exists with this email", c.Machine().State().Error)

	_, err = c.Login(ctx, "a@b.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", c.Machine().State().Error)

	rec, err = c.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	require.True(t, rec.IsAuthenticated)
	assert.Equal(t, "a@b.com", rec.User.Email)

	// A fresh process rehydrates optimistically, then validates.
	c = open()
	rec = c.Machine().State()
	assert.True(t, rec.IsAuthenticated)
	require.NotNil(t, rec.User)

	rec, err = c.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, rec.IsAuthenticated)

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", profile.Email)

	hello, err := c.Hello(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, hello)

	// Deactivating the account server-side makes validation end the session.
	require.NoError(t, users.SetActive(ctx, profile.ID, false))
	rec, err = c.Validate(ctx)
	require.Error(t, err)
	assert.Equal(t, session.Unauthenticated(), rec)

	_, err = c.Validate(ctx)
	assert.Equal(t, errors.ErrCodeSessionNotAuthenticated, errors.CodeOf(err))

	c = open()
	assert.Equal(t, session.Unauthenticated(), c.Machine().State())
}
