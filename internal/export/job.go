package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/remote"
	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// Common errors.
var (
	// ErrTimeout is returned when a job is still active after MaxWait.
	ErrTimeout = errors.New("export: timed out waiting for job")

	// ErrFailed is returned when a job ends in the Failed state.
	ErrFailed = errors.New("export: job failed")

	// ErrCancelled is returned when a job ends in the Cancelled state.
	ErrCancelled = errors.New("export: job cancelled")
)

// State is the lifecycle state of a remote job.
type State int

const (
	StateUnknown State = iota
	StatePending
	StateRunning
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether the job may still change state.
func (s State) Active() bool {
	return s == StatePending || s == StateRunning
}

// Job is a remote long-running task.
type Job interface {
	// Start submits the job and returns its remote id.
	Start(ctx context.Context) (string, error)

	// Status fetches the current state.
	Status(ctx context.Context) (State, error)
}

// failer is implemented by jobs that can explain a Failed state.
type failer interface {
	FailureMessage() string
}

// describer is implemented by jobs with a human-readable name.
type describer interface {
	Description() string
}

// Poller submits a job and waits for it to leave the active states.
type Poller struct {
	// Interval between status checks.
	// Default: 30s
	Interval time.Duration

	// MaxWait bounds the total wait. Zero means no limit.
	MaxWait time.Duration

	// Retry is applied to the submission and to each status check.
	Retry retry.Policy
}

// Run starts job and polls its status until it is no longer active. It
// returns the terminal state; Failed and Cancelled are also returned as
// errors.
func (p *Poller) Run(ctx context.Context, job Job) (State, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if d, ok := job.(describer); ok {
		ctx = logctx.WithStr(ctx, "description", d.Description())
	}

	var id string
	err := retry.Do(ctx, p.Retry, func(ctx context.Context, attempt int) error {
		var err error
		id, err = job.Start(ctx)
		return remote.Classify(err)
	})
	if err != nil {
		return StateUnknown, fmt.Errorf("start job: %w", err)
	}

	ctx = logctx.WithStr(ctx, "task_id", id)
	logger := logctx.FromContext(ctx)
	logger.Info().Msg("Export started")

	var deadline time.Time
	if p.MaxWait > 0 {
		deadline = time.Now().Add(p.MaxWait)
	}

	for {
		var state State
		err := retry.Do(ctx, p.Retry, func(ctx context.Context, attempt int) error {
			var err error
			state, err = job.Status(ctx)
			return remote.Classify(err)
		})
		if err != nil {
			return StateUnknown, fmt.Errorf("status of %s: %w", id, err)
		}

		if !state.Active() {
			return finish(job, id, state)
		}
		logger.Info().Str("state", state.String()).Msgf("Waiting on (id: %s)", id)

		wait := interval
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return state, fmt.Errorf("%w: %s still %s after %s", ErrTimeout, id, state, p.MaxWait)
			}
			if left < wait {
				wait = left
			}
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return state, ctx.Err()
		case <-t.C:
		}
	}
}

func finish(job Job, id string, state State) (State, error) {
	switch state {
	case StateSucceeded:
		return state, nil
	case StateCancelled:
		return state, fmt.Errorf("%w: %s", ErrCancelled, id)
	case StateFailed:
		msg := "no message"
		if f, ok := job.(failer); ok && f.FailureMessage() != "" {
			msg = f.FailureMessage()
		}
		return state, fmt.Errorf("%w: %s: %s", ErrFailed, id, msg)
	default:
		return state, fmt.Errorf("%w: %s in unexpected state %s", ErrFailed, id, state)
	}
}
