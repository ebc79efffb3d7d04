// Package api is the client for the authentication API: signup, login,
// token validation and the profile and hello endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/authflow/internal/log"
)

// DefaultBaseURL is used when no API URL is configured.
const DefaultBaseURL = "http://localhost:3001/api"

// RequestIDHeader carries a per-request identifier for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// Client is the authentication API client
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	logger *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithLogger sets the logger used for request traces.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new API client. An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("subsystem", "api")
	return c
}

// do performs one request and decodes a 2xx JSON body into target.
// Every failure comes back as an *Error.
func (c *Client) do(ctx context.Context, method, path, token string, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return unexpected(0, fmt.Errorf("failed to marshal request body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return unexpected(0, fmt.Errorf("failed to create request: %w", err))
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.With("method", method, "path", path, "request_id", requestID)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.WithError(err).DebugContext(ctx, "request failed")
		return network(err)
	}
	defer resp.Body.Close()

	logger.DebugContext(ctx, "request completed",
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return parseResponse(resp, target)
}

// errorBody is the error payload the API returns
type errorBody struct {
	Message *string `json:"message"`
}

// parseResponse maps the response onto target or an *Error.
func parseResponse(resp *http.Response, target any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return network(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil {
			return unexpected(resp.StatusCode, fmt.Errorf("request failed with status %d: %w", resp.StatusCode, err))
		}
		msg := ""
		if eb.Message != nil {
			msg = *eb.Message
		}
		return server(resp.StatusCode, msg)
	}

	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			return unexpected(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
		}
	}
	return nil
}
