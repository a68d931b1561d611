// Package fd provides FD, an owned handle to one kernel file descriptor.
//
// An FD is the sole owner of its descriptor: it is closed exactly once, either
// by Close or, as a backstop, when the FD becomes unreachable. Ownership is
// handed on with IntoRaw, after which the FD no longer closes anything.
// An FD is not safe for concurrent Close and Read/Write.
package fd

import (
	"io"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"
)

// FD owns a single open descriptor.
type FD struct {
	raw     int
	cleanup runtime.Cleanup
}

// New takes ownership of raw. The caller attests that raw is open and owned
// by nobody else. New returns nil if raw is negative.
func New(raw int) *FD {
	if raw < 0 {
		return nil
	}
	f := &FD{raw: raw}
	f.cleanup = runtime.AddCleanup(f, closeRaw, raw)
	return f
}

func closeRaw(raw int) {
	_ = unix.Close(raw)
}

// Raw returns the descriptor value without giving up ownership, or -1 once
// the FD is closed or released.
func (f *FD) Raw() int {
	if f == nil {
		return -1
	}
	return f.raw
}

// IntoRaw releases ownership and returns the descriptor. The FD will no
// longer close it.
func (f *FD) IntoRaw() int {
	if f == nil || f.raw < 0 {
		return -1
	}
	raw := f.raw
	f.raw = -1
	f.cleanup.Stop()
	return raw
}

// Close closes the descriptor. A second Close returns os.ErrClosed.
func (f *FD) Close() error {
	if f == nil || f.raw < 0 {
		return os.ErrClosed
	}
	raw := f.raw
	f.raw = -1
	f.cleanup.Stop()
	return unix.Close(raw)
}

// Read performs a single read. End of stream is reported as io.EOF.
func (f *FD) Read(p []byte) (int, error) {
	if f == nil || f.raw < 0 {
		return 0, os.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := ignoringEINTR(func() (int, error) { return unix.Read(f.raw, p) })
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write performs a single write. A short write returns io.ErrShortWrite
// along with the byte count; it is not retried.
func (f *FD) Write(p []byte) (int, error) {
	if f == nil || f.raw < 0 {
		return 0, os.ErrClosed
	}
	n, err := ignoringEINTR(func() (int, error) { return unix.Write(f.raw, p) })
	if err != nil {
		if n < 0 {
			n = 0
		}
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Duplicate returns a new, independently owned FD for the same open file.
// The duplicate is close-on-exec and never lands on 0, 1 or 2.
func (f *FD) Duplicate() (*FD, error) {
	if f == nil || f.raw < 0 {
		return nil, os.ErrClosed
	}
	raw, err := unix.FcntlInt(uintptr(f.raw), unix.F_DUPFD_CLOEXEC, 3)
	if err != nil {
		return nil, err
	}
	return New(raw), nil
}

// IntoFile hands ownership to an *os.File.
func (f *FD) IntoFile(name string) *os.File {
	raw := f.IntoRaw()
	if raw < 0 {
		return nil
	}
	return os.NewFile(uintptr(raw), name)
}

// FromFile duplicates the descriptor behind file into a new FD. The caller
// keeps ownership of file.
func FromFile(file *os.File) (*FD, error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}
	var (
		dup    *FD
		dupErr error
	)
	err = sc.Control(func(raw uintptr) {
		n, err := unix.FcntlInt(raw, unix.F_DUPFD_CLOEXEC, 3)
		if err != nil {
			dupErr = err
			return
		}
		dup = New(n)
	})
	if err != nil {
		return nil, err
	}
	return dup, dupErr
}

// String implements fmt.Stringer.
func (f *FD) String() string {
	if f == nil || f.raw < 0 {
		return "fd(closed)"
	}
	return "fd(" + strconv.Itoa(f.raw) + ")"
}

func ignoringEINTR(fn func() (int, error)) (int, error) {
	for {
		n, err := fn()
		if err != unix.EINTR {
			return n, err
		}
	}
}

var (
	_ io.ReadWriteCloser = (*FD)(nil)
)
