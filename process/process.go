package process

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/logger"
	"github.com/kbukum/gospawn/observability"
	"github.com/kbukum/gospawn/pipe"
	"github.com/kbukum/gospawn/sys"
)

// Process is a handle to a spawned child. It is safe for concurrent use.
//
// Once a Wait or TryWait has observed termination the status is cached, and
// later calls on the same handle return it again.
type Process struct {
	pid     int
	program string
	spawnID string
	started time.Time
	kernel  sys.Kernel
	log     *logger.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	status *ExitStatus
}

// ID returns the child's process identifier.
func (p *Process) ID() int { return p.pid }

// SpawnID returns the correlation id attached to this spawn's logs and spans.
func (p *Process) SpawnID() string { return p.spawnID }

// Wait blocks until the child terminates and returns its status.
func (p *Process) Wait() (ExitStatus, error) {
	status, _, err := p.wait(context.Background(), true)
	return status, err
}

// TryWait reports the child's status without blocking. done is false while
// the child is still running.
func (p *Process) TryWait() (status ExitStatus, done bool, err error) {
	return p.wait(context.Background(), false)
}

// Kill requests termination of the child. It holds the same lock as the
// reap, so it never signals a pid that has already been collected.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return p.notFound()
	}
	err := p.kernel.Kill(p.pid)
	switch {
	case err == nil:
		p.log.Debug("kill requested")
		return nil
	case errors.Is(err, sys.ErrNotFound):
		return p.notFound()
	default:
		return goerrors.Internal(err).WithDetail(logger.FieldPID, p.pid)
	}
}

// WaitWithOutput closes the parent's stdin end, drains stdout and stderr
// concurrently, then waits. pipes must be the ones returned by the spawn
// that produced p.
func (p *Process) WaitWithOutput(pipes Pipes) (Output, error) {
	pipes.Stdin.Close()
	pipes.Stdin = nil

	var r1, r2 io.Reader
	if pipes.Stdout != nil {
		r1 = pipes.Stdout
	}
	if pipes.Stderr != nil {
		r2 = pipes.Stderr
	}
	stdout, stderr, drainErr := pipe.Read2(r1, r2)
	pipes.Close()

	status, err := p.Wait()
	if err != nil {
		return Output{}, err
	}
	out := Output{Status: status, Stdout: stdout, Stderr: stderr}
	if drainErr != nil {
		return out, goerrors.Internal(drainErr).WithDetail(logger.FieldPID, p.pid)
	}
	return out, nil
}

func (p *Process) wait(ctx context.Context, block bool) (ExitStatus, bool, error) {
	if status, ok := p.cached(); ok {
		return status, true, nil
	}

	var span trace.Span
	if block {
		ctx, span = observability.StartSpan(ctx, observability.SpanWait, trace.WithAttributes(
			attribute.Int(observability.AttrPID, p.pid),
			attribute.String(observability.AttrSpawnID, p.spawnID),
		))
		defer span.End()
	}

	// Block outside the lock until the child is waitable, then reap under
	// it so concurrent waiters and Kill see one consistent transition.
	if block {
		if err := p.kernel.WaitReady(p.pid); err != nil && !errors.Is(err, sys.ErrNotFound) {
			err = goerrors.Internal(err).WithDetail(logger.FieldPID, p.pid)
			observability.SetSpanError(span, err)
			return ExitStatus{}, false, err
		}
	}

	p.mu.Lock()
	if p.status != nil {
		status := *p.status
		p.mu.Unlock()
		return status, true, nil
	}
	raw, err := p.kernel.Wait(p.pid, block)
	if err != nil {
		p.mu.Unlock()
		switch {
		case errors.Is(err, sys.ErrStillRunning):
			return ExitStatus{}, false, nil
		case errors.Is(err, sys.ErrNotFound):
			err = p.notFound()
		default:
			err = goerrors.Internal(err).WithDetail(logger.FieldPID, p.pid)
		}
		observability.SetSpanError(span, err)
		return ExitStatus{}, false, err
	}
	status := ExitStatusFromRaw(raw)
	p.status = &status
	p.mu.Unlock()

	lifetime := time.Since(p.started)
	code, _ := status.Code()
	if span != nil {
		span.SetAttributes(attribute.Int(observability.AttrExitCode, code))
	}
	p.metrics.RecordExit(ctx, p.program, status.Success(), lifetime)
	p.log.Debug("reaped", logger.Fields(
		logger.FieldExitCode, code,
		"status", status.String(),
		logger.FieldDuration, lifetime.Milliseconds(),
	))
	return status, true, nil
}

func (p *Process) cached() (ExitStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return ExitStatus{}, false
	}
	return *p.status, true
}

func (p *Process) notFound() error {
	return goerrors.NotFound("process", strconv.Itoa(p.pid)).WithCause(ErrNotFound)
}
