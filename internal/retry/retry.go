// Package retry runs operations under a single exponential backoff budget.
//
// One Policy is built from configuration at startup and handed to every
// component that talks to a remote service. Components apply it at exactly
// one level so the worst-case attempt count is Policy.Attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
)

// ErrExhausted is wrapped by the error Do returns when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy defines retry behavior.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int

	// Backoff is the wait before the second attempt.
	Backoff time.Duration

	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration

	// Multiplier grows the wait after every failed attempt.
	// Default: 2
	Multiplier float64

	// Jitter scales each wait by a random factor in [0.5, 1.5).
	Jitter bool
}

// DefaultPolicy returns 10 attempts starting at one second and doubling.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   10,
		Backoff:    time.Second,
		MaxBackoff: 5 * time.Minute,
		Multiplier: 2,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	d := time.Duration(float64(p.Backoff) * math.Pow(mult, float64(attempt-1)))
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d < 0) {
		d = p.MaxBackoff
	}
	if p.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()))
	}
	return d
}

// Do calls op until it succeeds, returns a permanent error, the context is
// done, or the policy runs out of attempts. op receives the 1-based attempt.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	logger := logctx.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) || errors.Is(err, context.Canceled) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := p.Delay(attempt)
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("attempts", attempts).
			Dur("backoff", wait).
			Msg("retrying")

		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
