package sys

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

const nullDevice = "/dev/null"

type unixKernel struct{}

var defaultKernel Kernel = unixKernel{}

// Default returns the kernel backed by the host operating system.
func Default() Kernel {
	return defaultKernel
}

func (unixKernel) Pipe() (int, int, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return p[0], p[1], nil
}

func (unixKernel) OpenNull(write bool) (int, error) {
	mode := unix.O_RDONLY
	if write {
		mode = unix.O_WRONLY
	}
	for {
		fd, err := unix.Open(nullDevice, mode|unix.O_CLOEXEC, 0)
		if err == unix.EINTR {
			continue
		}
		return fd, err
	}
}

func (unixKernel) Spawn(path string, argv, env []string, mappings []Mapping) (int, error) {
	if len(mappings) > 3 {
		return 0, fmt.Errorf("spawn: %d mappings: %w", len(mappings), unix.EINVAL)
	}
	// Child slot i receives files[i]; an unmapped slot maps onto itself.
	files := []uintptr{Stdin, Stdout, Stderr}
	for _, m := range mappings {
		if m.Dst < Stdin || m.Dst > Stderr || m.Src < 0 {
			return 0, fmt.Errorf("spawn: mapping %d->%d: %w", m.Src, m.Dst, unix.EBADF)
		}
		files[m.Dst] = uintptr(m.Src)
	}
	return syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Env:   env,
		Files: files,
	})
}

func (unixKernel) WaitReady(pid int) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		switch err {
		case unix.EINTR:
			continue
		case unix.ECHILD:
			return ErrNotFound
		}
		return err
	}
}

func (unixKernel) Wait(pid int, block bool) (int, error) {
	options := 0
	if !block {
		options = unix.WNOHANG
	}
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			return 0, ErrNotFound
		case err != nil:
			return 0, err
		case wpid == 0:
			return 0, ErrStillRunning
		}
		return int(ws), nil
	}
}

func (unixKernel) Kill(pid int) error {
	err := unix.Kill(pid, unix.SIGKILL)
	if err == unix.ESRCH {
		return ErrNotFound
	}
	return err
}
