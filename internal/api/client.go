package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every request unless the caller configures another one.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token for authenticated calls.
// An empty token sends the request without an Authorization header.
type TokenSource interface {
	Token() string
}

// Client calls the competition platform REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
	Metrics *Metrics
}

// New creates a client with the given request timeout. A zero timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// do performs one JSON round trip. route is a template such as
// "/teams/:id/requests/:id/approve" whose ":"-segments are filled from params
// in order; the template doubles as the metrics label.
func (c *Client) do(ctx context.Context, method, route string, params []string, in, out any) error {
	path, err := expandRoute(route, params)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, route, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, route, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !isAuthRoute(route) && c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Metrics.observe(route, method, 0, time.Since(start))
		return fmt.Errorf("api: %s %s failed: %w", method, route, err)
	}
	defer resp.Body.Close()
	c.Metrics.observe(route, method, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, route, err)
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, route, err)
	}
	return nil
}

func isAuthRoute(route string) bool {
	return strings.HasPrefix(route, "/auth/")
}

func expandRoute(route string, params []string) (string, error) {
	segments := strings.Split(route, "/")
	next := 0
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("api: route %s: missing parameter %s", route, seg)
		}
		if params[next] == "" {
			return "", fmt.Errorf("api: route %s: empty parameter %s", route, seg)
		}
		segments[i] = url.PathEscape(params[next])
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("api: route %s: %d unused parameters", route, len(params)-next)
	}
	return strings.Join(segments, "/"), nil
}
