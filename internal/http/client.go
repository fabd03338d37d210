package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
	ErrClientError  = errors.New("http: client error")
	ErrRateLimited  = errors.New("http: rate limited")
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// Timeout for individual requests.
	// Default: 30s
	Timeout time.Duration

	// Retry is the policy applied to each request.
	// Default: retry.DefaultPolicy()
	Retry retry.Policy
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 10,
		Timeout:             30 * time.Second,
		Retry:               retry.DefaultPolicy(),
	}
}

// Client is an HTTP client that retries server errors under a retry policy.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.Retry.Attempts <= 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// PostJSON marshals body and POSTs it to url. Transport errors and 5xx
// responses are retried; 4xx responses fail immediately.
func (c *Client) PostJSON(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	return retry.Do(ctx, c.opts.Retry, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", ErrServerError, resp.Status)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return c.rateLimited(ctx, resp.Header.Get("Retry-After"))
		}
		if err := checkStatusCode(resp.StatusCode); err != nil {
			return retry.Permanent(err)
		}
		return nil
	})
}

// rateLimited waits out a Retry-After header given in seconds, capped at the
// policy's MaxBackoff, and returns a transient error.
func (c *Client) rateLimited(ctx context.Context, retryAfter string) error {
	secs, err := strconv.Atoi(retryAfter)
	if err != nil || secs <= 0 {
		return ErrRateLimited
	}
	wait := time.Duration(secs) * time.Second
	if limit := c.opts.Retry.MaxBackoff; limit > 0 && wait > limit {
		wait = limit
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return fmt.Errorf("%w: retried after %s", ErrRateLimited, wait)
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: unexpected status code %d", ErrClientError, code)
	}
}
