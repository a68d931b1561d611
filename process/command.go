package process

import (
	"strings"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/logger"
	"github.com/kbukum/gospawn/stdio"
	"github.com/kbukum/gospawn/sys"
)

// Command describes a child process to spawn. It is spawned at most once.
//
// Builder methods never fail; an invalid program, argument or environment
// entry is recorded and returned by Spawn before any descriptor is created.
type Command struct {
	program string
	argv    []string
	env     Env

	stdin  *stdio.Spec
	stdout *stdio.Spec
	stderr *stdio.Spec

	kernel sys.Kernel
	log    *logger.Logger

	spawned bool
	err     error
}

// New returns a Command for program. The program name is argument 0.
func New(program string) *Command {
	c := &Command{program: program, argv: []string{program}}
	c.check("program", program)
	return c
}

// Arg appends one argument.
func (c *Command) Arg(arg string) *Command {
	c.check("arg", arg)
	c.argv = append(c.argv, arg)
	return c
}

// Args appends arguments in order.
func (c *Command) Args(args ...string) *Command {
	for _, a := range args {
		c.Arg(a)
	}
	return c
}

// Env sets an environment variable for the child.
func (c *Command) Env(key, value string) *Command {
	if key == "" || strings.ContainsRune(key, '=') {
		c.fail(goerrors.InvalidInput("env", "key must be non-empty and must not contain '='").
			WithDetail("key", key))
	}
	c.check("env", key)
	c.check("env", value)
	c.env.Set(key, value)
	return c
}

// EnvRemove removes an environment variable from the child.
func (c *Command) EnvRemove(key string) *Command {
	c.check("env", key)
	c.env.Remove(key)
	return c
}

// EnvClear starts the child with an empty environment plus any later Env
// calls.
func (c *Command) EnvClear() *Command {
	c.env.Clear()
	return c
}

// SetStdin configures the child's standard input.
func (c *Command) SetStdin(s stdio.Spec) *Command {
	c.stdin = replace(c.stdin, s)
	return c
}

// SetStdout configures the child's standard output.
func (c *Command) SetStdout(s stdio.Spec) *Command {
	c.stdout = replace(c.stdout, s)
	return c
}

// SetStderr configures the child's standard error.
func (c *Command) SetStderr(s stdio.Spec) *Command {
	c.stderr = replace(c.stderr, s)
	return c
}

// WithKernel overrides the kernel primitives used to spawn and wait.
func (c *Command) WithKernel(k sys.Kernel) *Command {
	c.kernel = k
	return c
}

// WithLogger overrides the logger. By default the "process" component
// logger is used.
func (c *Command) WithLogger(l *logger.Logger) *Command {
	c.log = l
	return c
}

// Program returns the program as given to New.
func (c *Command) Program() string { return c.program }

// GetArgs returns the arguments after argument 0.
func (c *Command) GetArgs() []string {
	return append([]string(nil), c.argv[1:]...)
}

// GetEnvs returns the environment overrides in order.
func (c *Command) GetEnvs() []EnvVar { return c.env.Vars() }

// Argv returns the full argument vector, program first.
func (c *Command) Argv() []string {
	return append([]string(nil), c.argv...)
}

// Err returns the first invalid input recorded by a builder method.
func (c *Command) Err() error { return c.err }

func (c *Command) check(field, s string) {
	if strings.IndexByte(s, 0) >= 0 {
		c.fail(goerrors.InvalidInput(field, "contains NUL byte").WithCause(ErrInvalidArgument))
	}
}

func (c *Command) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Command) getKernel() sys.Kernel {
	if c.kernel == nil {
		return sys.Default()
	}
	return c.kernel
}

func (c *Command) logger() *logger.Logger {
	if c.log == nil {
		return logger.Get("process")
	}
	return c.log
}

// replace stores s, closing any explicit descriptor held by the spec it
// supersedes.
func replace(old *stdio.Spec, s stdio.Spec) *stdio.Spec {
	if old != nil {
		old.Close()
	}
	return &s
}
