// Package api implements the REST client for the assistant backend.
package api

import (
	"bytes"
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
	unknownDetail = "Unknown error"
	errorBodyMax  = 4096
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	SystemPrompt string
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Client talks to the backend endpoints under BaseURL.
type Client struct {
	base         *url.URL
	systemPrompt string
	http         *http.Client
	logger       *slog.Logger
}

// New validates the base URL and builds a client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", opts.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:         base,
		systemPrompt: opts.SystemPrompt,
		http:         httpClient,
		logger:       logger,
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Error is a non-2xx response from the backend.
type Error struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Endpoint, e.StatusCode, e.Detail)
}

// StatusCode extracts the HTTP status of a backend error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	req, err := c.newJSONRequest(ctx, path, payload)
	if err != nil {
		return err
	}
	return c.doJSON(req, path, out)
}

func (c *Client) doJSON(req *http.Request, path string, out any) error {
	resp, err := c.do(req, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// do sends req and converts non-2xx responses into *Error. The caller closes
// the body on success.
func (c *Client) do(req *http.Request, path string) (*http.Response, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", path, err)
	}
	c.logger.Debug("backend call", "endpoint", path, "status", resp.StatusCode, "elapsed_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMax))
		return nil, &Error{Endpoint: path, StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
	}
	return resp, nil
}

// parseDetail reads the {"detail": ...} error body. Non-string details (for
// example validation error lists) are kept as compact JSON.
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 || string(body.Detail) == "null" {
		return unknownDetail
	}

	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return unknownDetail
		}
		return text
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body.Detail); err != nil {
		return unknownDetail
	}
	return compact.String()
}
