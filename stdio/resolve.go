package stdio

import (
	"errors"
	"fmt"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/fd"
	"github.com/kbukum/gospawn/pipe"
	"github.com/kbukum/gospawn/sys"
)

// ErrStdioAliasing is the cause of the error returned when an explicit
// descriptor is itself 0, 1 or 2.
var ErrStdioAliasing = errors.New("explicit stdio aliasing")

// Slot is one of the child's standard streams.
type Slot int

const (
	Stdin  Slot = sys.Stdin
	Stdout Slot = sys.Stdout
	Stderr Slot = sys.Stderr
)

// Slots lists the streams in resolution order.
var Slots = [3]Slot{Stdin, Stdout, Stderr}

// Readable reports whether the child reads from the slot.
func (s Slot) Readable() bool { return s == Stdin }

// FD returns the descriptor number the slot occupies in the child.
func (s Slot) FD() int { return int(s) }

func (s Slot) String() string {
	switch s {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// ChildKind identifies the variant held by a Child.
type ChildKind int

const (
	// ChildInherit leaves the slot untouched.
	ChildInherit ChildKind = iota
	// ChildOwned installs a descriptor created during resolution.
	ChildOwned
	// ChildExplicit installs a descriptor supplied by the caller.
	ChildExplicit
)

// Child is the resolved instruction for one slot. It owns its descriptor
// until Close.
type Child struct {
	kind ChildKind
	fd   *fd.FD
}

// Kind reports the variant.
func (c Child) Kind() ChildKind { return c.kind }

// Raw returns the descriptor to install, or -1 for ChildInherit.
func (c Child) Raw() int {
	if c.kind == ChildInherit {
		return -1
	}
	return c.fd.Raw()
}

// Mapping returns the remap instruction for slot dst. Inherit emits none.
func (c Child) Mapping(dst Slot) (sys.Mapping, bool) {
	if c.kind == ChildInherit || c.fd == nil {
		return sys.Mapping{}, false
	}
	return sys.Mapping{Src: c.fd.Raw(), Dst: dst.FD()}, true
}

// Close releases the child-side descriptor. The parent calls it once the
// child holds its own copy, or when spawn is abandoned.
func (c *Child) Close() error {
	if c.fd == nil {
		return nil
	}
	err := c.fd.Close()
	c.fd = nil
	return err
}

// Resolve turns spec into the child instruction for slot and, for a pipe,
// the end the parent keeps. An explicit descriptor is moved out of spec.
//
// Descriptors created here never land on 0, 1 or 2, so installing one slot
// cannot clobber the source of another.
func Resolve(k sys.Kernel, spec *Spec, slot Slot) (Child, *fd.FD, error) {
	if k == nil {
		k = sys.Default()
	}
	if spec == nil {
		return Child{kind: ChildInherit}, nil, nil
	}

	switch spec.kind {
	case KindInherit:
		return Child{kind: ChildInherit}, nil, nil

	case KindNull:
		raw, err := k.OpenNull(!slot.Readable())
		if err != nil {
			return Child{}, nil, goerrors.ResourceExhausted("null device", err).
				WithRetryable(sys.IsTransient(err)).
				WithDetail("slot", slot.String())
		}
		f, err := aboveStdio(fd.New(raw))
		if err != nil {
			return Child{}, nil, err
		}
		return Child{kind: ChildOwned, fd: f}, nil, nil

	case KindPipe:
		r, w, err := pipe.New(k)
		if err != nil {
			if appErr, ok := goerrors.AsAppError(err); ok {
				appErr.WithDetail("slot", slot.String())
			}
			return Child{}, nil, err
		}
		childEnd, parentEnd := w, r
		if slot.Readable() {
			childEnd, parentEnd = r, w
		}
		childEnd, err = aboveStdio(childEnd)
		if err != nil {
			parentEnd.Close()
			return Child{}, nil, err
		}
		return Child{kind: ChildOwned, fd: childEnd}, parentEnd, nil

	case KindExplicit:
		f := spec.take()
		if f.Raw() <= sys.Stderr {
			// Not ours to close: it is one of the parent's own streams.
			raw := f.IntoRaw()
			return Child{}, nil, goerrors.Unsupported("explicit stdio aliasing").
				WithCause(ErrStdioAliasing).
				WithDetails(map[string]any{"slot": slot.String(), "fd": raw})
		}
		return Child{kind: ChildExplicit, fd: f}, nil, nil
	}

	return Child{}, nil, goerrors.Internal(fmt.Errorf("unknown stdio kind %d", spec.kind))
}

// aboveStdio moves f off descriptors 0, 1 and 2. Those are only handed out
// when the parent has closed its own standard streams.
func aboveStdio(f *fd.FD) (*fd.FD, error) {
	if f.Raw() > sys.Stderr {
		return f, nil
	}
	dup, err := f.Duplicate()
	f.Close()
	if err != nil {
		return nil, goerrors.ResourceExhausted("descriptor", err).WithRetryable(sys.IsTransient(err))
	}
	return dup, nil
}
