package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// retryPolicy bounds doWithRetry. Delays grow quadratically from baseDelay.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

var defaultRetry = retryPolicy{maxRetries: 3, baseDelay: time.Second}

// retryableError indicates a transient failure that can be retried.
type retryableError struct {
	statusCode int
	body       string
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.body)
}

// doWithRetry executes an HTTP request with backoff for transient errors
// (network failures, 5xx, 429). Other statuses are returned to the caller.
func doWithRetry(ctx context.Context, client *http.Client, policy retryPolicy, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= policy.maxRetries; attempt++ {
		if attempt > 0 {
			base := time.Duration(attempt*attempt) * policy.baseDelay
			jitter := time.Duration(rand.Int64N(int64(base/2 + 1)))
			backoff := base + jitter
			logger.Warn("retrying request", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < policy.maxRetries {
				logger.Warn("request failed, will retry", "error", err)
				continue
			}
			return nil, fmt.Errorf("request failed after %d retries: %w", policy.maxRetries, err)
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			lastErr = &retryableError{statusCode: resp.StatusCode, body: string(body)}
			if attempt < policy.maxRetries {
				logger.Warn("server error, will retry", "status", resp.StatusCode, "body", string(body))
				continue
			}
			return nil, fmt.Errorf("server error after %d retries: %w", policy.maxRetries, lastErr)
		}

		return resp, nil
	}

	return nil, lastErr
}
