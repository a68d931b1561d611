package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/fd"
	"github.com/kbukum/gospawn/logger"
	"github.com/kbukum/gospawn/observability"
	"github.com/kbukum/gospawn/stdio"
	"github.com/kbukum/gospawn/sys"
)

// Pipes holds the parent's ends of the pipes created for a spawn. Slots not
// configured as a pipe are nil.
type Pipes struct {
	// Stdin is the write end feeding the child's standard input.
	Stdin *fd.FD
	// Stdout is the read end of the child's standard output.
	Stdout *fd.FD
	// Stderr is the read end of the child's standard error.
	Stderr *fd.FD
}

// Close closes every end still held.
func (p *Pipes) Close() error {
	var errs []error
	for _, f := range []**fd.FD{&p.Stdin, &p.Stdout, &p.Stderr} {
		if *f == nil {
			continue
		}
		if err := (*f).Close(); err != nil {
			errs = append(errs, err)
		}
		*f = nil
	}
	return errors.Join(errs...)
}

// Output is the result of running a child to completion with captured
// output.
type Output struct {
	Status ExitStatus
	Stdout []byte
	Stderr []byte
}

// Spawn starts the child. Streams left unset follow def, except an unset
// stdin, which is Null unless needsStdin is true. def must not be an explicit
// descriptor.
//
// Spawn succeeds at most once per Command. On failure no Process is
// returned and every descriptor created for the attempt is closed.
func (c *Command) Spawn(def stdio.Spec, needsStdin bool) (*Process, Pipes, error) {
	return c.spawn(context.Background(), def, needsStdin)
}

// Output spawns with stdout and stderr captured and stdin at the null
// device unless configured otherwise, drains both streams, and waits.
func (c *Command) Output() (Output, error) {
	proc, pipes, err := c.Spawn(stdio.Pipe(), false)
	if err != nil {
		return Output{}, err
	}
	return proc.WaitWithOutput(pipes)
}

// Status spawns with unset streams inherited from the parent and waits.
func (c *Command) Status() (ExitStatus, error) {
	proc, pipes, err := c.Spawn(stdio.Inherit(), true)
	if err != nil {
		return ExitStatus{}, err
	}
	pipes.Stdin.Close()
	pipes.Stdin = nil
	status, err := proc.Wait()
	pipes.Close()
	return status, err
}

func (c *Command) spawn(ctx context.Context, def stdio.Spec, needsStdin bool) (*Process, Pipes, error) {
	if c.spawned {
		return nil, Pipes{}, goerrors.AlreadySpawned(c.program).WithCause(ErrAlreadySpawned)
	}
	if c.err != nil {
		return nil, Pipes{}, c.err
	}
	if def.Kind() == stdio.KindExplicit {
		return nil, Pipes{}, goerrors.InvalidInput("default", "an explicit descriptor cannot be a default")
	}
	// Explicit descriptors are moved out during resolution, so a Command
	// holding one can never be resolved again.
	for _, s := range []*stdio.Spec{c.stdin, c.stdout, c.stderr} {
		if s != nil && s.Kind() == stdio.KindExplicit {
			c.spawned = true
		}
	}

	spawnID := uuid.NewString()
	log := c.logger().WithFields(logger.Fields(
		logger.FieldProgram, c.program,
		logger.FieldSpawnID, spawnID,
	))
	metrics := observability.DefaultMetrics()

	ctx, span := observability.StartSpan(ctx, observability.SpanSpawn, trace.WithAttributes(
		attribute.String(observability.AttrProgram, c.program),
		attribute.String(observability.AttrSpawnID, spawnID),
		attribute.Int(observability.AttrArgc, len(c.argv)),
	))
	defer span.End()

	fail := func(err error) (*Process, Pipes, error) {
		observability.SetSpanError(span, err)
		metrics.RecordSpawnError(ctx, c.program, string(goerrors.CodeOf(err)))
		log.Warn("spawn failed", logger.ErrorFields("spawn", err))
		return nil, Pipes{}, err
	}

	k := c.getKernel()
	children, pipes, err := c.setupIO(k, def, needsStdin, log)
	if err != nil {
		return fail(err)
	}
	// The child holds its own copies once created; the parent's copies of
	// the child ends are closed whatever the outcome.
	defer func() {
		for i := range children {
			children[i].Close()
		}
	}()

	var mappings []sys.Mapping
	for i, slot := range stdio.Slots {
		if m, ok := children[i].Mapping(slot); ok {
			mappings = append(mappings, m)
		}
	}

	// From here on the attempt counts as the one spawn, whatever the outcome.
	c.spawned = true
	path, err := lookPath(c.program)
	if err != nil {
		pipes.Close()
		return fail(goerrors.SpawnFailed(c.program, err))
	}

	pid, err := k.Spawn(path, c.argv, c.env.Capture(os.Environ()), mappings)
	if err != nil {
		pipes.Close()
		return fail(goerrors.SpawnFailed(c.program, err).WithRetryable(sys.IsTransient(err)))
	}

	span.SetAttributes(attribute.Int(observability.AttrPID, pid))
	metrics.RecordSpawn(ctx, c.program)
	log.Debug("spawned", logger.Fields(logger.FieldPID, pid, "path", path))

	return &Process{
		pid:     pid,
		program: c.program,
		spawnID: spawnID,
		started: time.Now(),
		kernel:  k,
		log:     log.WithFields(logger.Fields(logger.FieldPID, pid)),
		metrics: metrics,
	}, pipes, nil
}

// setupIO resolves stdin, stdout and stderr in that order. If a slot fails,
// everything created for earlier slots is closed.
func (c *Command) setupIO(k sys.Kernel, def stdio.Spec, needsStdin bool, log *logger.Logger) ([3]stdio.Child, Pipes, error) {
	var (
		children [3]stdio.Child
		pipes    Pipes
	)
	parents := [3]**fd.FD{&pipes.Stdin, &pipes.Stdout, &pipes.Stderr}
	specs := [3]*stdio.Spec{c.stdin, c.stdout, c.stderr}

	for i, slot := range stdio.Slots {
		spec := specs[i]
		if spec == nil {
			d := def
			if slot == stdio.Stdin && !needsStdin {
				d = stdio.Null()
			}
			spec = &d
		}
		kind := spec.Kind()

		child, parent, err := stdio.Resolve(k, spec, slot)
		if err != nil {
			for j := 0; j < i; j++ {
				children[j].Close()
			}
			for j := i + 1; j < len(specs); j++ {
				if specs[j] != nil {
					specs[j].Close()
				}
			}
			pipes.Close()
			return children, Pipes{}, err
		}
		children[i] = child
		*parents[i] = parent

		log.Debug("stdio resolved", logger.Fields(
			logger.FieldSlot, slot.String(),
			"spec", kind.String(),
			logger.FieldFD, child.Raw(),
		))
	}
	return children, pipes, nil
}

// lookPath resolves a program name without a slash on PATH.
func lookPath(program string) (string, error) {
	if strings.Contains(program, "/") {
		return program, nil
	}
	return exec.LookPath(program)
}
