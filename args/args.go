// Package args holds the program's argument list as an explicit value.
//
// The entry point captures the list once and passes it to whatever needs it;
// there is no package-level table.
//
//	func main() {
//	    a := args.Init(os.Args)
//	    run(a)
//	}
package args

import "strings"

// Args is an immutable, owned copy of a process argument vector.
type Args struct {
	argv []string
}

// Init copies argv. It is meant to be called once, by the entry point.
func Init(argv []string) *Args {
	return &Args{argv: append([]string(nil), argv...)}
}

// Len returns the number of arguments, including argument 0.
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return len(a.argv)
}

// At returns argument i.
func (a *Args) At(i int) (string, bool) {
	if a == nil || i < 0 || i >= len(a.argv) {
		return "", false
	}
	return a.argv[i], true
}

// Program returns argument 0, or "" for an empty list.
func (a *Args) Program() string {
	s, _ := a.At(0)
	return s
}

// All returns a copy of the full list.
func (a *Args) All() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.argv...)
}

// Tail returns a copy of the arguments after argument 0.
func (a *Args) Tail() []string {
	if a.Len() <= 1 {
		return nil
	}
	return append([]string(nil), a.argv[1:]...)
}

// Split divides the arguments after argument 0 at the first "--". The
// separator itself is dropped. ok reports whether it was present.
func (a *Args) Split() (before, after []string, ok bool) {
	tail := a.Tail()
	for i, s := range tail {
		if s == "--" {
			return tail[:i], tail[i+1:], true
		}
	}
	return tail, nil, false
}

func (a *Args) String() string {
	return strings.Join(a.All(), " ")
}
