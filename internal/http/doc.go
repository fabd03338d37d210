// Package http provides a small retrying HTTP client for outbound webhooks.
//
// This package handles:
//   - Connection pooling
//   - JSON request bodies
//   - Retry of transport errors and 5xx responses under a retry.Policy
//
// Any other non-2xx response is returned immediately as a permanent error.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Timeout: 30 * time.Second,
//	    Retry:   cfg.Retry.Policy(),
//	})
//
//	err := client.PostJSON(ctx, webhookURL, payload)
package http
