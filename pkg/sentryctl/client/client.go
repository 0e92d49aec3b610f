// Package client is the HTTP client sentryctl uses against the
// management server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one management server with an optional bearer token.
type Client struct {
	server string
	token  string
	http   *http.Client
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.Timeout = timeout }
}

func New(server string, opts ...Option) (*Client, error) {
	if server == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	c := &Client{
		server: strings.TrimRight(server, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// AuthResponse mirrors the server's login response.
type AuthResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Login authenticates and returns a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Alert mirrors the server's alert resource.
type Alert struct {
	ID             uint   `json:"id"`
	CameraID       string `json:"cameraId"`
	AlertType      string `json:"alertType"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
	Acknowledged   bool   `json:"acknowledged"`
	AcknowledgedBy string `json:"acknowledgedBy"`
	CreatedAt      string `json:"createdAt"`
}

// AlertPage mirrors the server's alert list response.
type AlertPage struct {
	Items []Alert `json:"items"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
}

// ListAlerts fetches one page of alerts.
func (c *Client) ListAlerts(ctx context.Context, page, size int, unacknowledgedOnly bool) (*AlertPage, error) {
	path := fmt.Sprintf("/api/v1/alerts?page=%d&size=%d", page, size)
	if unacknowledgedOnly {
		path = fmt.Sprintf("/api/v1/alerts/unacknowledged?page=%d&size=%d", page, size)
	}
	var result AlertPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AcknowledgeAlert marks an alert as handled.
func (c *Client) AcknowledgeAlert(ctx context.Context, id uint) (*Alert, error) {
	var result Alert
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/alerts/%d/acknowledge", id), nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AlertStats mirrors the server's stats response.
type AlertStats struct {
	Total          int64 `json:"total"`
	Unacknowledged int64 `json:"unacknowledged"`
}

// GetAlertStats fetches alert counts.
func (c *Client) GetAlertStats(ctx context.Context) (*AlertStats, error) {
	var result AlertStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/alerts/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Camera mirrors the server's camera resource.
type Camera struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	StreamURL string `json:"streamUrl"`
	Status    string `json:"status"`
}

// ListCameras fetches all cameras.
func (c *Client) ListCameras(ctx context.Context) ([]Camera, error) {
	var result []Camera
	if err := c.do(ctx, http.MethodGet, "/api/v1/cameras", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
