package process

import (
	"errors"

	"github.com/kbukum/gospawn/sys"
)

var (
	// ErrAlreadySpawned is the cause of the error returned by a second spawn
	// of the same Command.
	ErrAlreadySpawned = errors.New("command already spawned")
	// ErrNotFound is the cause of a wait or kill on a process the kernel no
	// longer knows, typically because it was already reaped.
	ErrNotFound = sys.ErrNotFound
	// ErrInvalidArgument is the cause of the error recorded when the program
	// or an argument contains a NUL byte.
	ErrInvalidArgument = errors.New("argument contains NUL byte")
	// ErrWaitDelay is the cause reported by Run when the child's pipes were
	// still open after the wait delay, typically held by a descendant.
	ErrWaitDelay = errors.New("pipes still open after wait delay")
)
