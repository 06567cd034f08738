package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the daemon's fixed loopback address.
const DefaultBaseURL = "http://127.0.0.1:33211"

// Client talks to the clash-service control plane.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration. The timeout leaves
// room for a stop that escalates to a forced kill.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 10 * time.Second,
	}
}

// New creates a new control-plane client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	_, err := c.Version(ctx)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	return true
}

// Version returns the daemon's service name and version.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	var v VersionInfo
	err := c.do(ctx, http.MethodGet, "/version", nil, &v)
	return v, err
}

// IsHealthy reports whether the daemon runs all of its cores.
func (c *Client) IsHealthy(ctx context.Context) (bool, error) {
	var ok bool
	err := c.do(ctx, http.MethodGet, "/is_healthy", nil, &ok)
	return ok, err
}

// GetClash returns the configuration of the running core.
func (c *Client) GetClash(ctx context.Context) (CoreConfig, error) {
	var cfg CoreConfig
	err := c.do(ctx, http.MethodGet, "/get_clash", nil, &cfg)
	return cfg, err
}

// StartClash starts, or replaces, the core with cfg.
func (c *Client) StartClash(ctx context.Context, cfg CoreConfig) error {
	return c.do(ctx, http.MethodPost, "/start_clash", cfg, nil)
}

// StopClash stops the core.
func (c *Client) StopClash(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop_clash", nil, nil)
}

// StopService asks the daemon to stop its cores and exit.
func (c *Client) StopService(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop_service", nil, nil)
}

// do sends a request and unwraps the envelope into out. A non-zero code
// becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}
