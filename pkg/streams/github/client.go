// Package github provides a low-level client for the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// API is the default GitHub API base URL.
	API = "https://api.github.com"
	// maxResponseSize limits API response size to prevent memory exhaustion.
	maxResponseSize = 10 * 1024 * 1024 // 10MB
	// maxErrorBodySize limits error response body reading for debugging.
	maxErrorBodySize = 1024
	// tokenPreviewPrefixLen is the number of characters to show at the start of a masked token.
	tokenPreviewPrefixLen = 4
	// tokenPreviewSuffixLen is the number of characters to show at the end of a masked token.
	tokenPreviewSuffixLen = 4
	// tokenPreviewMinLen is the minimum token length to show a preview.
	tokenPreviewMinLen = 8
)

// Error represents an error response from the GitHub API.
type Error struct {
	Status     string
	Body       string
	URL        string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("github API error: %s", e.Status)
}

// Response wraps a GitHub API response with its pagination cursors.
// NextURL and LastURL are the full cursor URLs from the Link header;
// both are empty when the current page is the last one.
type Response struct {
	NextURL string
	LastURL string
}

// Client is a low-level client for interacting with the GitHub API.
type Client struct {
	HTTPClient *http.Client
	Token      string
	BaseURL    string
}

// URL resolves a path or absolute cursor URL against the configured base.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = API
	}
	return baseURL + path
}

// Do performs an HTTP GET request to the GitHub API. The path may be a
// relative API path or an absolute cursor URL from a previous response.
func (c *Client) Do(ctx context.Context, path string) ([]byte, *Response, error) {
	apiURL := c.URL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	// Log request details (mask token for security)
	tokenPreview := ""
	if c.Token != "" {
		if len(c.Token) > tokenPreviewMinLen {
			tokenPreview = c.Token[:tokenPreviewPrefixLen] + "..." + c.Token[len(c.Token)-tokenPreviewSuffixLen:]
		} else {
			tokenPreview = "***"
		}
	}

	slog.DebugContext(ctx, "GitHub API request starting",
		"method", "GET",
		"url", apiURL,
		"token", tokenPreview)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "GitHub API request failed", "url", apiURL, "error", err, "elapsed", elapsed)
		return nil, nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.DebugContext(ctx, "failed to close response body", "error", closeErr, "url", apiURL)
		}
	}()

	slog.DebugContext(ctx, "GitHub API response received",
		"status", resp.Status,
		"url", apiURL,
		"elapsed", elapsed,
		"rate_limit_remaining", resp.Header.Get("X-Ratelimit-Remaining"))

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			body = []byte("failed to read response body")
		}
		slog.ErrorContext(ctx, "GitHub API error",
			"status", resp.Status,
			"status_code", resp.StatusCode,
			"url", apiURL,
			"body", string(body))
		return nil, nil, &Error{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
			URL:        apiURL,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, err
	}

	return data, parseLinkHeader(resp.Header.Get("Link")), nil
}

// Get makes a GET request to the GitHub API and decodes the response into v.
func (c *Client) Get(ctx context.Context, path string, v any) (*Response, error) {
	data, resp, err := c.Do(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}

	return resp, nil
}

// parseLinkHeader extracts the next and last cursor URLs from a Link header.
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) *Response {
	resp := &Response{}
	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(strings.TrimSpace(link), ";")
		if len(parts) != 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		switch strings.TrimSpace(parts[1]) {
		case `rel="next"`:
			resp.NextURL = target
		case `rel="last"`:
			resp.LastURL = target
		}
	}
	return resp
}
