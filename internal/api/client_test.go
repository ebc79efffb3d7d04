package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/session"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", WithLogger(log.Nop()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)

	c = NewClient("http://example.test/api/")
	assert.Equal(t, "http://example.test/api", c.BaseURL)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		assert.NoError(t, err)

		var body Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, Credentials{Email: "a@b.com", Password: "secret1"}, body)

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Login successful",
			"token":   "abc",
			"user":    map[string]any{"id": 1, "email": "a@b.com", "is_active": true},
		})
	})

	resp, err := c.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Token)
	assert.Equal(t, &session.User{ID: 1, Email: "a@b.com", IsActive: true}, resp.User)
}

func TestLoginWithoutTokenIsUnexpected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful"})
	})

	_, err := c.Login(context.Background(), "a@b.com", "secret1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnexpected))
	assert.Equal(t, MsgUnexpected, Message(err))
}

func TestSignup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/signup", r.URL.Path)
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "User created successfully",
			"user":    map[string]any{"id": 2, "email": "new@b.com", "is_active": true},
		})
	})

	resp, err := c.Signup(context.Background(), "new@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Equal(t, int64(2), resp.User.ID)
}

func TestBearerOnProtectedRoutes(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xyz", r.Header.Get("Authorization"))
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Token is valid",
			"user":    map[string]any{"id": 1, "email": "a@b.com", "is_active": true},
		})
	})

	v, err := c.ValidateToken(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", v.User.Email)

	p, err := c.Profile(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.User.ID)

	assert.Equal(t, []string{"/api/validate-token", "/api/profile"}, paths)
}

func TestHello(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Hello!"})
	})

	resp, err := c.Hello(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Message)
}

func TestServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"message verbatim", 401, `{"message":"Invalid email or password"}`, KindServer, "Invalid email or password"},
		{"conflict", 409, `{"message":"User already exists with this email"}`, KindServer, "User already exists with this email"},
		{"no message field", 500, `{"error":"boom"}`, KindServer, MsgServer},
		{"empty message", 400, `{"message":""}`, KindServer, MsgServer},
		{"not json", 502, `<html>bad gateway</html>`, KindUnexpected, MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Login(context.Background(), "a@b.com", "x")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, Message(err))
		})
	}
}

func TestUndecodableSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})

	_, err := c.Hello(context.Background())
	assert.True(t, IsKind(err, KindUnexpected))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url+"/api", WithLogger(log.Nop()))
	_, err := c.ValidateToken(context.Background(), "xyz")
	require.Error(t, err)

	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, MsgNetwork, Message(err))
	assert.True(t, errors.Is(err, errors.New(errors.ErrCodeAPINetwork, "")))
}

func TestCanceledContextIsNetwork(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "late"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Hello(ctx)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestUnauthorized(t *testing.T) {
	assert.True(t, server(401, "Token is missing").Unauthorized())
	assert.False(t, server(409, "dup").Unauthorized())
	assert.False(t, network(fmt.Errorf("refused")).Unauthorized())
}

func TestMessageForeignError(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Equal(t, MsgUnexpected, Message(fmt.Errorf("whatever")))
	assert.Equal(t, KindUnexpected, KindOf(fmt.Errorf("whatever")))
}
