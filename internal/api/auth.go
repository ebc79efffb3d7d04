package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/authflow/internal/session"
)

// Credentials is the body of signup and login requests
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse represents a signup response
type SignupResponse struct {
	Message string        `json:"message"`
	User    *session.User `json:"user"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    *session.User `json:"user"`
}

// ValidateResponse represents a token validation response
type ValidateResponse struct {
	Message string        `json:"message"`
	User    *session.User `json:"user"`
}

// ProfileResponse represents a profile response
type ProfileResponse struct {
	User *session.User `json:"user"`
}

// HelloResponse represents the hello endpoint response
type HelloResponse struct {
	Message string `json:"message"`
}

// Signup creates a new account. It does not log in.
func (c *Client) Signup(ctx context.Context, email, password string) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", Credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", "", Credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, unexpected(http.StatusOK, errMissingToken)
	}
	return &out, nil
}

// ValidateToken asks the server whether token is still accepted.
func (c *Client) ValidateToken(ctx context.Context, token string) (*ValidateResponse, error) {
	var out ValidateResponse
	if err := c.do(ctx, http.MethodGet, "/validate-token", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile retrieves the user that owns token.
func (c *Client) Profile(ctx context.Context, token string) (*ProfileResponse, error) {
	var out ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Hello calls the unauthenticated greeting endpoint.
func (c *Client) Hello(ctx context.Context) (*HelloResponse, error) {
	var out HelloResponse
	if err := c.do(ctx, http.MethodGet, "/hello", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
