// Package pipe creates anonymous pipes as pairs of owned descriptors and
// drains captured child output.
package pipe

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/fd"
	"github.com/kbukum/gospawn/sys"
)

// New returns the read and write ends of a new anonymous pipe. Bytes written
// to w become readable from r in order. Each end is owned independently.
func New(k sys.Kernel) (r, w *fd.FD, err error) {
	if k == nil {
		k = sys.Default()
	}
	rraw, wraw, err := k.Pipe()
	if err != nil {
		return nil, nil, goerrors.ResourceExhausted("pipe", err).WithRetryable(sys.IsTransient(err))
	}
	return fd.New(rraw), fd.New(wraw), nil
}

// File hands an end over to a pollable *os.File, so reads and writes on it
// honor deadlines. On error the caller still owns f.
func File(f *fd.FD, name string) (*os.File, error) {
	if err := unix.SetNonblock(f.Raw(), true); err != nil {
		return nil, goerrors.Internal(err).WithDetail("operation", "set_nonblock")
	}
	return f.IntoFile(name), nil
}

// Read2 drains both readers to end of stream concurrently and returns what
// each produced. Either reader may be nil. Draining both at once keeps a child
// that fills one pipe from blocking while the other is being read.
func Read2(r1, r2 io.Reader) ([]byte, []byte, error) {
	var b1, b2 bytes.Buffer
	var g errgroup.Group
	drain := func(dst *bytes.Buffer, r io.Reader) {
		if r == nil {
			return
		}
		g.Go(func() error {
			_, err := dst.ReadFrom(r)
			return err
		})
	}
	drain(&b1, r1)
	drain(&b2, r2)
	if err := g.Wait(); err != nil {
		return b1.Bytes(), b2.Bytes(), err
	}
	return b1.Bytes(), b2.Bytes(), nil
}
