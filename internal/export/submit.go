package export

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
)

// Outcome is the result of one job in SubmitAll.
type Outcome struct {
	Job   Job
	State State
	Err   error
}

// SubmitAll runs every job through the poller on a pool of concurrency
// workers. It waits for all of them and joins every per-job error.
func SubmitAll(ctx context.Context, poller *Poller, jobs []Job, concurrency int) ([]Outcome, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	logger := logctx.FromContext(ctx)

	outcomes := make([]Outcome, len(jobs))
	var (
		mu   sync.Mutex
		errs []error
	)

	wp := workerpool.New(concurrency)
	for i, job := range jobs {
		wp.Submit(func() {
			out := Outcome{Job: job}
			if err := ctx.Err(); err != nil {
				out.Err = err
			} else {
				out.State, out.Err = poller.Run(ctx, job)
			}
			outcomes[i] = out

			if out.Err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", jobName(job, i), out.Err))
				mu.Unlock()
			}
		})
	}
	wp.StopWait()

	failed := len(errs)
	logger.Info().Int("jobs", len(jobs)).Int("failed", failed).Msg("Exports finished")
	return outcomes, errors.Join(errs...)
}

func jobName(job Job, i int) string {
	if d, ok := job.(describer); ok {
		return d.Description()
	}
	return fmt.Sprintf("job %d", i)
}
