package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// fakeJob replays a scripted sequence of status results.
type fakeJob struct {
	mu       sync.Mutex
	name     string
	startErr []error
	states   []State
	errs     []error
	message  string
	starts   int
	checks   int
}

func (j *fakeJob) Start(ctx context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.starts++
	if len(j.startErr) > 0 {
		err := j.startErr[0]
		j.startErr = j.startErr[1:]
		if err != nil {
			return "", err
		}
	}
	return "operations/" + j.name, nil
}

func (j *fakeJob) Status(ctx context.Context) (State, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	i := j.checks
	j.checks++
	if i < len(j.errs) && j.errs[i] != nil {
		return StateUnknown, j.errs[i]
	}
	if i >= len(j.states) {
		return j.states[len(j.states)-1], nil
	}
	return j.states[i], nil
}

func (j *fakeJob) Description() string    { return j.name }
func (j *fakeJob) FailureMessage() string { return j.message }

func fastPoller() *Poller {
	return &Poller{
		Interval: time.Millisecond,
		Retry:    retry.Policy{Attempts: 3, Backoff: time.Millisecond, Multiplier: 2},
	}
}

func TestStateActive(t *testing.T) {
	tests := []struct {
		state  State
		active bool
	}{
		{StateUnknown, false},
		{StatePending, true},
		{StateRunning, true},
		{StateSucceeded, false},
		{StateFailed, false},
		{StateCancelled, false},
	}
	for _, tt := range tests {
		if got := tt.state.Active(); got != tt.active {
			t.Errorf("%s.Active() = %v, want %v", tt.state, got, tt.active)
		}
	}
}

func TestPollerSucceeds(t *testing.T) {
	job := &fakeJob{name: "a", states: []State{StatePending, StateRunning, StateRunning, StateSucceeded}}

	state, err := fastPoller().Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", state)
	}
	if job.checks != 4 {
		t.Errorf("expected 4 status checks, got %d", job.checks)
	}
}

func TestPollerFailed(t *testing.T) {
	job := &fakeJob{name: "a", states: []State{StateRunning, StateFailed}, message: "Too many pixels"}

	state, err := fastPoller().Run(context.Background(), job)
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if state != StateFailed {
		t.Errorf("expected FAILED, got %s", state)
	}
	if err == nil || !strings.Contains(err.Error(), "Too many pixels") {
		t.Errorf("expected remote message in error, got %v", err)
	}
}

func TestPollerCancelled(t *testing.T) {
	job := &fakeJob{name: "a", states: []State{StateCancelled}}
	if _, err := fastPoller().Run(context.Background(), job); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestPollerRetriesStatusErrors(t *testing.T) {
	transient := errors.New("connection reset")
	job := &fakeJob{
		name:   "a",
		states: []State{StateRunning, StateRunning, StateRunning, StateSucceeded},
		errs:   []error{nil, transient, transient},
	}

	state, err := fastPoller().Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state != StateSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", state)
	}
}

func TestPollerStatusErrorsExhausted(t *testing.T) {
	transient := errors.New("connection reset")
	job := &fakeJob{
		name:   "a",
		states: []State{StateRunning},
		errs:   []error{transient, transient, transient, transient},
	}

	_, err := fastPoller().Run(context.Background(), job)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if job.checks != 3 {
		t.Errorf("expected 3 checks, got %d", job.checks)
	}
}

func TestPollerPermanentStatusError(t *testing.T) {
	job := &fakeJob{
		name:   "a",
		states: []State{StateRunning},
		errs:   []error{&googleapi.Error{Code: 404}},
	}

	_, err := fastPoller().Run(context.Background(), job)
	if err == nil || !retry.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if job.checks != 1 {
		t.Errorf("expected 1 check, got %d", job.checks)
	}
}

func TestPollerStartRetried(t *testing.T) {
	job := &fakeJob{
		name:     "a",
		startErr: []error{&googleapi.Error{Code: 503}},
		states:   []State{StateSucceeded},
	}
	if _, err := fastPoller().Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.starts != 2 {
		t.Errorf("expected 2 starts, got %d", job.starts)
	}
}

func TestPollerTimeout(t *testing.T) {
	job := &fakeJob{name: "a", states: []State{StateRunning}}
	p := fastPoller()
	p.MaxWait = 20 * time.Millisecond

	state, err := p.Run(context.Background(), job)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if state != StateRunning {
		t.Errorf("expected RUNNING, got %s", state)
	}
}

func TestPollerContextCanceled(t *testing.T) {
	job := &fakeJob{name: "a", states: []State{StateRunning}}
	p := fastPoller()
	p.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Run(ctx, job)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

