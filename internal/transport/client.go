package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// RetryPolicy is an overridable, named retry configuration (carried over
// from original_source/clients/http_client.py's RetryPolicy dataclass,
// rather than inlining the constants — spec §6).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is 5 attempts, 0.3s base, 5s cap (spec §6).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 300 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// backoff returns the delay before the given attempt (1-indexed), with
// ±20% jitter, per spec §6: 0.3 × 2^(attempt-1) seconds capped at 5s.
func (r RetryPolicy) backoff(attempt int) time.Duration {
	expo := r.BaseDelay * time.Duration(1<<uint(attempt-1))
	if expo > r.MaxDelay {
		expo = r.MaxDelay
	}
	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(expo))
	return expo + jitter
}

// Client is the shared, retrying, rate-limited, bearer-token-authenticated
// HTTP client used by both the SDG and Intab API clients (spec §4.12,
// §6). One Client instance owns one *http.Client (safe for concurrent
// use) per external system.
type Client struct {
	http    *http.Client
	limiter *RateLimiter
	tokens  *TokenProvider
	retry   RetryPolicy
	name    string
}

// NewClient builds a Client. tokens may be nil for unauthenticated calls.
func NewClient(name string, tokens *TokenProvider, limiter *RateLimiter, retry RetryPolicy) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		tokens:  tokens,
		retry:   retry,
		name:    name,
	}
}

// DoJSON performs method on url with an optional JSON request body,
// decoding a JSON response body into out (if non-nil). It applies rate
// limiting, bearer-token auth, retry-on-transient-status, and a single
// 401-triggered token refresh (spec §6).
func (c *Client) DoJSON(ctx context.Context, method, url string, reqBody, out any) error {
	var bodyBytes []byte
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.name, err)
		}
		bodyBytes = b
	}

	refreshedOnce := false

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s: rate limiter: %w", c.name, err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("%s: build request: %w", c.name, err)
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.tokens != nil {
			token, err := c.tokens.EnsureToken(ctx)
			if err != nil {
				return fmt.Errorf("%s: ensure token: %w", c.name, err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == c.retry.MaxAttempts {
				return fmt.Errorf("%s: request failed after %d attempts: %w", c.name, attempt, err)
			}
			cclog.Warnf("%s: request error (attempt %d/%d): %s", c.name, attempt, c.retry.MaxAttempts, err.Error())
			c.sleepRetry(ctx, attempt, nil)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && !refreshedOnce {
			resp.Body.Close()
			refreshedOnce = true
			c.tokens.Invalidate()
			cclog.Warnf("%s: got 401, refreshing token and retrying once", c.name)
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			if attempt == c.retry.MaxAttempts {
				resp.Body.Close()
				return fmt.Errorf("%s: status %d after %d attempts", c.name, resp.StatusCode, attempt)
			}
			c.sleepRetry(ctx, attempt, resp)
			resp.Body.Close()
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%s: unexpected status %d", c.name, resp.StatusCode)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", c.name, err)
		}
		return nil
	}

	return fmt.Errorf("%s: exhausted retries", c.name)
}

func bodyReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// sleepRetry honours Retry-After when present, else the policy's
// exponential backoff with jitter (spec §6).
func (c *Client) sleepRetry(ctx context.Context, attempt int, resp *http.Response) {
	delay := c.retry.backoff(attempt)
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				delay = time.Duration(secs) * time.Second
			}
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
