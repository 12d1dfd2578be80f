// Package roboflow is a small client for the Roboflow REST API: image
// upload, annotation upload and workspace project listing.
package roboflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the public Roboflow API
	DefaultAPIURL = "https://api.roboflow.com"

	defaultTimeout = 30 * time.Second
	userAgent      = "labelsync/1.0"
)

var (
	// ErrUnauthorized indicates the API key was rejected
	ErrUnauthorized = errors.New("roboflow: api key rejected")

	// ErrNoAPIKey indicates the client was created without an API key
	ErrNoAPIKey = errors.New("roboflow: api key is not configured")
)

// Config holds client settings
type Config struct {
	APIURL    string
	APIKey    string
	Workspace string
	// Split is the dataset split new images are assigned to
	Split   string
	Timeout time.Duration
}

// Client talks to the Roboflow API
type Client struct {
	baseURL    string
	apiKey     string
	workspace  string
	split      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Roboflow API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimSuffix(cfg.APIURL, "/")
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	split := cfg.Split
	if split == "" {
		split = "train"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		workspace:  cfg.Workspace,
		split:      split,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// apiResponse covers the fields Roboflow uses to report outcomes
type apiResponse struct {
	Success   bool            `json:"success"`
	Duplicate bool            `json:"duplicate"`
	ID        string          `json:"id"`
	Message   string          `json:"message"`
	Error     json.RawMessage `json:"error"`
}

// failure returns the human readable error carried by the body, if any
func (r apiResponse) failure() string {
	if len(r.Error) > 0 && string(r.Error) != "null" {
		var text string
		if err := json.Unmarshal(r.Error, &text); err == nil {
			return text
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		return string(r.Error)
	}
	return r.Message
}

// endpoint builds an authenticated URL
func (c *Client) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	return c.baseURL + path + "?" + query.Encode()
}

// do performs a request and returns status and body. Transport failures
// are errors; HTTP error statuses are not.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (int, []byte, error) {
	if c.apiKey == "" {
		return 0, nil, ErrNoAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("roboflow request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("roboflow %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Error("roboflow rejected credentials", "status", resp.StatusCode, "path", path)
	} else if resp.StatusCode >= 400 {
		c.logger.Warn("roboflow request error", "status", resp.StatusCode, "path", path, "body", string(data))
	}
	return resp.StatusCode, data, nil
}
