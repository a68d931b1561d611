// Package stdio selects what a child process sees on its standard streams
// and resolves that selection into descriptors just before spawn.
//
// A Spec is one of Inherit, Null, Pipe or an explicit descriptor. Resolve
// turns a Spec into a Child instruction for the remap table plus, for pipes,
// the end the parent keeps.
package stdio

import (
	"os"

	"github.com/kbukum/gospawn/fd"
)

// Kind identifies the variant held by a Spec.
type Kind int

const (
	// KindInherit shares the parent's descriptor at the same slot.
	KindInherit Kind = iota
	// KindNull connects the slot to the null device.
	KindNull
	// KindPipe creates an anonymous pipe between parent and child.
	KindPipe
	// KindExplicit hands a caller-owned descriptor to the child.
	KindExplicit
)

func (k Kind) String() string {
	switch k {
	case KindInherit:
		return "inherit"
	case KindNull:
		return "null"
	case KindPipe:
		return "pipe"
	case KindExplicit:
		return "fd"
	default:
		return "unknown"
	}
}

// Spec describes one child stream. The zero value is Inherit.
//
// A Spec holding an explicit descriptor owns it until Resolve moves it out;
// after that the Spec reads as Inherit.
type Spec struct {
	kind Kind
	fd   *fd.FD
}

// Inherit returns a Spec that shares the parent's stream.
func Inherit() Spec { return Spec{kind: KindInherit} }

// Null returns a Spec that connects the stream to the null device.
func Null() Spec { return Spec{kind: KindNull} }

// Pipe returns a Spec that creates a pipe and gives the parent the other end.
func Pipe() Spec { return Spec{kind: KindPipe} }

// FromFD returns a Spec that hands f to the child. The Spec takes ownership
// of f. A nil f yields Inherit.
func FromFD(f *fd.FD) Spec {
	if f == nil {
		return Inherit()
	}
	return Spec{kind: KindExplicit, fd: f}
}

// FromFile duplicates the descriptor behind file and returns a Spec owning
// the duplicate. The caller keeps file.
func FromFile(file *os.File) (Spec, error) {
	dup, err := fd.FromFile(file)
	if err != nil {
		return Spec{}, err
	}
	return FromFD(dup), nil
}

// Kind reports the variant.
func (s Spec) Kind() Kind { return s.kind }

// String implements fmt.Stringer.
func (s Spec) String() string {
	if s.kind == KindExplicit {
		return s.fd.String()
	}
	return s.kind.String()
}

// ParseMode maps a configuration mode string to a Spec. Explicit descriptors
// have no textual form.
func ParseMode(mode string) (Spec, bool) {
	switch mode {
	case "", "inherit":
		return Inherit(), true
	case "null":
		return Null(), true
	case "pipe":
		return Pipe(), true
	}
	return Spec{}, false
}

// Close releases an explicit descriptor that will not be spawned and resets
// s to Inherit. It is a no-op for the other kinds.
func (s *Spec) Close() error {
	if s.kind != KindExplicit {
		return nil
	}
	return s.take().Close()
}

// take moves the explicit descriptor out of s, leaving Inherit behind.
func (s *Spec) take() *fd.FD {
	f := s.fd
	s.fd = nil
	s.kind = KindInherit
	return f
}
