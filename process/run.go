package process

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/fd"
	"github.com/kbukum/gospawn/observability"
	"github.com/kbukum/gospawn/pipe"
	"github.com/kbukum/gospawn/stdio"
)

// Run executes a subprocess and waits for it to complete.
// If the context ends first the child is killed.
//
// A non-zero exit is returned as an *ExitStatusError alongside the Result.
func Run(ctx context.Context, req Request) (*Result, error) {
	if req.Binary == "" {
		return nil, goerrors.InvalidInput("binary", "is required")
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanRun, trace.WithAttributes(
		attribute.String(observability.AttrProgram, req.Binary),
	))
	defer span.End()

	cmd, err := buildCommand(req)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, contextError(ctx)
	}

	start := time.Now()
	proc, pipes, err := cmd.spawn(ctx, stdio.Pipe(), req.Stdin != nil)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}

	files, err := openFiles(&pipes)
	if err != nil {
		pipes.Close()
		_ = proc.Kill()
		_, _ = proc.Wait()
		observability.SetSpanError(span, err)
		return nil, err
	}
	defer files.close()

	var killed atomic.Bool
	exited := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			killed.Store(true)
			_ = proc.Kill()
		case <-exited:
		}
	}()

	fed := make(chan error, 1)
	switch {
	case files.stdin == nil:
		fed <- nil
	case req.Stdin == nil:
		// A piped stdin with nothing to feed reads as empty.
		files.stdin.Close()
		fed <- nil
	default:
		go func() { fed <- feed(files.stdin, req.Stdin) }()
	}
	drained := make(chan drainResult, 1)
	go func() {
		var r1, r2 io.Reader
		if files.stdout != nil {
			r1 = files.stdout
		}
		if files.stderr != nil {
			r2 = files.stderr
		}
		stdout, stderr, err := pipe.Read2(r1, r2)
		drained <- drainResult{stdout: stdout, stderr: stderr, err: err}
	}()

	status, waitErr := proc.Wait()
	close(exited)
	out, ioErr := awaitIO(waitDelay(req.WaitDelay), files, fed, drained)
	stdout, stderr := out.stdout, out.stderr

	result := &Result{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: -1,
		Status:   status,
		Duration: time.Since(start),
	}
	if code, ok := status.Code(); ok {
		result.ExitCode = code
	}
	span.SetAttributes(attribute.Int(observability.AttrExitCode, result.ExitCode))

	switch {
	case waitErr != nil:
		err = waitErr
	case killed.Load():
		err = contextError(ctx)
	case ioErr != nil:
		err = goerrors.Internal(ioErr).WithDetail("operation", "io")
	default:
		err = status.ExitOK()
	}
	if err != nil {
		observability.SetSpanError(span, err)
	}
	return result, err
}

func buildCommand(req Request) (*Command, error) {
	cmd := New(req.Binary).Args(req.Args...).WithKernel(req.Kernel)
	for _, kv := range req.Env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, goerrors.InvalidInput("env", "entry must be key=value").WithDetail("entry", kv)
		}
		cmd.Env(key, value)
	}

	stdinMode := req.StdinMode
	if stdinMode == "" {
		stdinMode = "null"
	}
	if req.Stdin != nil {
		stdinMode = "pipe"
	}
	modes := []struct {
		field string
		mode  string
		set   func(stdio.Spec) *Command
	}{
		{"stdin", stdinMode, cmd.SetStdin},
		{"stdout", defaultMode(req.StdoutMode), cmd.SetStdout},
		{"stderr", defaultMode(req.StderrMode), cmd.SetStderr},
	}
	for _, m := range modes {
		spec, ok := stdio.ParseMode(m.mode)
		if !ok {
			return nil, goerrors.InvalidInput(m.field, "must be one of: inherit null pipe").WithDetail("mode", m.mode)
		}
		m.set(spec)
	}
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func defaultMode(mode string) string {
	if mode == "" {
		return "pipe"
	}
	return mode
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return goerrors.Timeout("process").WithCause(ctx.Err())
	}
	return goerrors.Canceled("process", ctx.Err())
}

// DefaultWaitDelay bounds how long Run keeps reading after the child has
// exited, for descendants that inherited the pipes and keep them open.
const DefaultWaitDelay = time.Second

func waitDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultWaitDelay
	}
	return d
}

// runFiles are the parent ends of Run's pipes as pollable files.
type runFiles struct {
	stdin, stdout, stderr *os.File
}

func openFiles(p *Pipes) (runFiles, error) {
	var files runFiles
	ends := []struct {
		end  **fd.FD
		file **os.File
		name string
	}{
		{&p.Stdin, &files.stdin, "stdin"},
		{&p.Stdout, &files.stdout, "stdout"},
		{&p.Stderr, &files.stderr, "stderr"},
	}
	for _, e := range ends {
		if *e.end == nil {
			continue
		}
		f, err := pipe.File(*e.end, e.name)
		if err != nil {
			files.close()
			return runFiles{}, err
		}
		*e.end = nil
		*e.file = f
	}
	return files, nil
}

// expire unblocks every pending read and write.
func (f runFiles) expire() {
	now := time.Now()
	for _, file := range []*os.File{f.stdin, f.stdout, f.stderr} {
		if file != nil {
			_ = file.SetDeadline(now)
		}
	}
}

func (f runFiles) close() {
	for _, file := range []*os.File{f.stdin, f.stdout, f.stderr} {
		if file != nil {
			_ = file.Close()
		}
	}
}

func feed(w *os.File, r io.Reader) error {
	defer w.Close()
	_, err := io.Copy(w, r)
	if errors.Is(err, unix.EPIPE) {
		// The child stopped reading; its exit status tells the story.
		return nil
	}
	return err
}

type drainResult struct {
	stdout, stderr []byte
	err            error
}

// awaitIO waits for the stdin feeder and the output drain. Once delay has
// passed it expires the pipes, collects what was drained so far and reports
// ErrWaitDelay. A feeder stuck reading its source is abandoned.
func awaitIO(delay time.Duration, files runFiles, fed <-chan error, drained <-chan drainResult) (drainResult, error) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	var (
		out                drainResult
		feedErr            error
		gotFeed, gotOutput bool
	)
	for !gotFeed || !gotOutput {
		select {
		case feedErr = <-fed:
			gotFeed = true
		case out = <-drained:
			gotOutput = true
		case <-timer.C:
			files.expire()
			if !gotOutput {
				out = <-drained
			}
			return out, ErrWaitDelay
		}
	}
	if out.err != nil {
		return out, out.err
	}
	return out, feedErr
}
