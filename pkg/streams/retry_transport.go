package streams

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	// retryAttempts is the maximum number of retry attempts.
	retryAttempts = 5
	// retryDelay is the initial retry delay.
	retryDelay = 1 * time.Second
	// retryMaxDelay is the maximum retry delay.
	retryMaxDelay = 1 * time.Minute
	// retryMaxJitter adds randomness to prevent thundering herd.
	retryMaxJitter = 1 * time.Second
)

// RetryTransport wraps an http.RoundTripper with retry logic using exponential backoff with jitter.
type RetryTransport struct {
	Base http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface with retry logic.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		t.Base = http.DefaultTransport
	}

	var resp *http.Response
	var lastErr error

	err := retry.Do(
		func() error {
			var err error
			start := time.Now()
			resp, err = t.Base.RoundTrip(req) //nolint:bodyclose // Response body is handled by caller in successful cases
			elapsed := time.Since(start)
			if err != nil {
				slog.ErrorContext(req.Context(), "HTTP request failed",
					"url", req.URL.String(),
					"error", err,
					"elapsed", elapsed)
				lastErr = err
				return err
			}

			// Check if this is a retryable error
			shouldRetry := false
			retryReason := ""

			// Retry on 429 (rate limit) or 5xx server errors
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
				shouldRetry = true
				retryReason = "retryable status code"
			}

			// GitHub returns 403 for rate limit errors - check headers to confirm
			if resp.StatusCode == http.StatusForbidden {
				if remaining := resp.Header.Get("X-Ratelimit-Remaining"); remaining == "0" {
					shouldRetry = true
					retryReason = "GitHub rate limit exceeded"
				}
			}

			if shouldRetry {
				bodyBytes, readErr := io.ReadAll(resp.Body)
				if readErr != nil {
					slog.DebugContext(req.Context(), "failed to read response body for retry", "error", readErr)
					bodyBytes = nil
				}
				if closeErr := resp.Body.Close(); closeErr != nil {
					slog.DebugContext(req.Context(), "failed to close response body for retry", "error", closeErr)
				}
				resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				slog.InfoContext(req.Context(), "HTTP request will be retried",
					"status", resp.StatusCode,
					"url", req.URL.String(),
					"reason", retryReason)
				lastErr = &retryableError{StatusCode: resp.StatusCode}
				return lastErr
			}

			return nil
		},
		retry.Context(req.Context()),
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxJitter(retryMaxJitter),
		retry.RetryIf(func(err error) bool {
			var retryErr *retryableError
			return errors.As(err, &retryErr)
		}),
	)
	if err != nil {
		if lastErr != nil {
			return resp, lastErr
		}
		return nil, err
	}

	return resp, nil
}

// retryableError indicates an error that should be retried.
type retryableError struct {
	StatusCode int
}

func (e *retryableError) Error() string {
	return http.StatusText(e.StatusCode)
}
