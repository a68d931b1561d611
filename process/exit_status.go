package process

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus is the raw termination status of a child, as reported by wait.
type ExitStatus struct {
	raw int
}

// ExitStatusFromRaw wraps a raw wait status.
func ExitStatusFromRaw(raw int) ExitStatus {
	return ExitStatus{raw: raw}
}

// Raw returns the raw wait status.
func (s ExitStatus) Raw() int { return s.raw }

func (s ExitStatus) ws() unix.WaitStatus { return unix.WaitStatus(s.raw) }

// Code returns the exit code if the child exited normally.
func (s ExitStatus) Code() (int, bool) {
	if !s.ws().Exited() {
		return 0, false
	}
	return s.ws().ExitStatus(), true
}

// Signal returns the terminating signal if the child was killed by one.
func (s ExitStatus) Signal() (syscall.Signal, bool) {
	if !s.ws().Signaled() {
		return 0, false
	}
	return s.ws().Signal(), true
}

// Success reports whether the child exited with code 0.
func (s ExitStatus) Success() bool {
	code, ok := s.Code()
	return ok && code == 0
}

// ExitOK returns nil on success and an *ExitStatusError otherwise.
func (s ExitStatus) ExitOK() error {
	if s.Success() {
		return nil
	}
	return &ExitStatusError{status: s}
}

func (s ExitStatus) String() string {
	if code, ok := s.Code(); ok {
		return fmt.Sprintf("exit status %d", code)
	}
	if sig, ok := s.Signal(); ok {
		return "signal: " + sig.String()
	}
	return fmt.Sprintf("unrecognised wait status %#x", s.raw)
}

// ExitStatusError is returned by ExitOK for an unsuccessful status.
type ExitStatusError struct {
	status ExitStatus
}

func (e *ExitStatusError) Error() string {
	return "process exited unsuccessfully: " + e.status.String()
}

// ExitStatus returns the status that produced the error.
func (e *ExitStatusError) ExitStatus() ExitStatus { return e.status }

// Code returns the exit code, which is never 0. It reports false if the
// child did not exit normally.
func (e *ExitStatusError) Code() (int, bool) {
	code, ok := e.status.Code()
	if !ok || code == 0 {
		return 0, false
	}
	return code, true
}
