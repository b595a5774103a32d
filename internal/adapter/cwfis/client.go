// Package cwfis fetches active-fire data from the CWFIS Datamart, trying the
// CSV, GeoJSON, and KML renditions of the feed in priority order.
package cwfis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrSourceUnavailable marks a fetch that failed after exhausting retries (or
// a non-retriable upstream rejection). Callers recover by trying the next
// format or returning an empty result; it is never fatal to a cycle.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrParseFailure marks a payload that fetched fine but could not be parsed
// in the attempted format. Callers recover by advancing to the next format.
var ErrParseFailure = errors.New("parse failure")

const (
	userAgent   = "BorealSmokeNL/1.0 (Wildfire Air Quality Tracker)"
	maxAttempts = 3
)

// Client issues HTTP requests to the Datamart with a per-call timeout and an
// exponential-backoff retry policy. All client state is set at construction;
// nothing is mutated afterwards.
type Client struct {
	httpClient *http.Client
	baseURL    string
	minWait    time.Duration
	maxWait    time.Duration
	logger     *slog.Logger
}

// NewClient creates a Datamart client. minWait/maxWait bound the retry
// backoff; the timeout applies per attempt.
func NewClient(baseURL string, timeout, minWait, maxWait time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		minWait:    minWait,
		maxWait:    maxWait,
		logger:     logger,
	}
}

// Get fetches baseURL+path, retrying transient failures (network errors,
// timeouts, 5xx) up to 3 attempts with doubling backoff. 4xx responses fail
// immediately. Exhaustion wraps ErrSourceUnavailable.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	wait := c.minWait
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepWithContext(ctx, wait) {
				return nil, ctx.Err()
			}
			wait = min(wait*2, c.maxWait)
		}

		body, retriable, err := c.doRequest(ctx, path)
		if err == nil {
			return body, nil
		}
		if !retriable {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		lastErr = err
		c.logger.Warn("fetch attempt failed",
			"path", path, "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("%w: %d attempts: %v", ErrSourceUnavailable, maxAttempts, lastErr)
}

// doRequest performs one attempt. The second return value reports whether the
// failure is transient and worth retrying.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for keep-alive reuse
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
