// Package sys exposes the kernel primitives the spawn layer is built on:
// pipe creation, the null device, process creation with a descriptor remap
// table, wait and kill.
package sys

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Standard stream descriptor numbers in the child.
const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2
)

var (
	// ErrStillRunning is returned by a non-blocking Wait on a live process.
	ErrStillRunning = errors.New("process still running")
	// ErrNotFound is returned when the kernel no longer knows the process,
	// usually because it has already been reaped.
	ErrNotFound = errors.New("process not found")
)

// Mapping installs Src at descriptor Dst (0, 1 or 2) in the child.
type Mapping struct {
	Src int
	Dst int
}

// Kernel is the set of primitives process creation needs.
type Kernel interface {
	// Pipe returns the read and write ends of a new pipe, both close-on-exec.
	Pipe() (r, w int, err error)
	// OpenNull opens the null device for reading or writing.
	OpenNull(write bool) (int, error)
	// Spawn starts path with argv and env and applies at most three mappings.
	// Slots without a mapping are inherited unchanged.
	Spawn(path string, argv, env []string, mappings []Mapping) (pid int, err error)
	// WaitReady blocks until pid has terminated without reaping it, so the
	// pid stays reserved until Wait collects the status.
	WaitReady(pid int) error
	// Wait returns the raw wait status of pid. With block=false it returns
	// ErrStillRunning instead of blocking.
	Wait(pid int, block bool) (status int, err error)
	// Kill requests termination of pid.
	Kill(pid int) error
}

// IsTransient reports whether err is an errno a caller may reasonably retry.
func IsTransient(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.EAGAIN, unix.ENOMEM, unix.EMFILE, unix.ENFILE, unix.EINTR:
		return true
	}
	return false
}
