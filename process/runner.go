package process

import (
	"context"
	"time"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/logger"
	"github.com/kbukum/gospawn/resilience"
)

// RunnerConfig configures the resilience chain around Run. Nil fields are
// skipped.
type RunnerConfig struct {
	Retry    *resilience.RetryConfig
	Bulkhead *resilience.BulkheadConfig
}

// Runner wraps subprocess execution with retry and a concurrency cap.
// The bulkhead is shared across calls, so a Runner limits how many children
// are alive at once.
type Runner struct {
	retry    *resilience.RetryConfig
	bulkhead *resilience.Bulkhead
}

// NewRunner creates a Runner. An empty config makes Run call process.Run
// directly.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{}
	if cfg.Retry != nil {
		retry := *cfg.Retry
		if retry.RetryIf == nil {
			retry.RetryIf = RetryIfSpawnFailed
		}
		if retry.OnRetry == nil {
			retry.OnRetry = logRetry
		}
		r.retry = &retry
	}
	if cfg.Bulkhead != nil {
		r.bulkhead = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return r
}

// Run executes a subprocess through the resilience chain.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if r == nil {
		return Run(ctx, req)
	}
	run := func() (*Result, error) { return Run(ctx, req) }
	if r.bulkhead != nil {
		inner := run
		run = func() (*Result, error) {
			return resilience.ExecuteWithResult(r.bulkhead, ctx, inner)
		}
	}
	if r.retry != nil {
		return resilience.Retry(ctx, *r.retry, run)
	}
	return run()
}

// RetryIfSpawnFailed retries only failures that happened before a child
// started and that are marked retryable, so stdin is never fed twice.
func RetryIfSpawnFailed(err error) bool {
	switch goerrors.CodeOf(err) {
	case goerrors.ErrCodeResourceExhausted, goerrors.ErrCodeSpawnFailed:
		return goerrors.IsRetryable(err)
	}
	return false
}

func logRetry(attempt int, err error, backoff time.Duration) {
	logger.Get("process").Warn("retrying spawn", logger.Fields(
		"attempt", attempt,
		logger.FieldError, err.Error(),
		"backoff", backoff.String(),
	))
}
