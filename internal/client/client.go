// ABOUTME: HTTP client for the collabfs backend API
// ABOUTME: Shared request plumbing: headers, request ids, error decoding

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is the API client for the collabfs backend
type Client struct {
	baseURL    string
	authKey    string
	groupKey   string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithAuthKey sets the x-api-key sent to /auth endpoints
func WithAuthKey(key string) Option {
	return func(c *Client) { c.authKey = key }
}

// WithGroupKey sets the x-api-key sent to /group endpoints
func WithGroupKey(key string) Option {
	return func(c *Client) { c.groupKey = key }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client (useful for testing)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one backend request
type call struct {
	method string
	path   string
	key    string
	body   any
	// fallback is the message used when the backend gives none
	fallback string
	// requireSuccess rejects 2xx bodies that do not carry success: true
	requireSuccess bool
}

// envelope is the status part most auth responses carry
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	var reader io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.key != "" {
		req.Header.Set("x-api-key", cl.key)
	}

	slog.Debug("API request", "method", cl.method, "path", cl.path, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	slog.Debug("API response", "path", cl.path, "status", resp.StatusCode,
		"request_id", requestID, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data, cl.fallback)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 && out == nil && !cl.requireSuccess {
		return nil
	}
	if !json.Valid(trimmed) {
		return &APIError{StatusCode: resp.StatusCode, Message: "Invalid JSON response from server"}
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil {
			failed := env.Success != nil && !*env.Success
			if failed || (cl.requireSuccess && env.Success == nil) {
				msg := env.Message
				if msg == "" {
					msg = cl.fallback
				}
				return &APIError{StatusCode: resp.StatusCode, Message: msg}
			}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "Invalid JSON response from server"}
	}
	return nil
}

// handleRequestError converts transport failures into user-facing errors
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}
