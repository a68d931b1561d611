package process

import (
	"io"
	"time"

	"github.com/kbukum/gospawn/sys"
)

// Request configures a subprocess for Run.
type Request struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Env is additional environment variables (key=value), applied over the
	// parent's environment.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// StdinMode selects inherit, null or pipe when Stdin is nil. Defaults to
	// null.
	StdinMode string
	// StdoutMode selects inherit, null or pipe. Defaults to pipe (captured).
	StdoutMode string
	// StderrMode selects inherit, null or pipe. Defaults to pipe (captured).
	StderrMode string
	// WaitDelay bounds how long output is still read after the child exits.
	// Zero uses DefaultWaitDelay.
	WaitDelay time.Duration
	// Kernel overrides the kernel primitives. Nil uses the host.
	Kernel sys.Kernel
}
