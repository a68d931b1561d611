// Package systest provides a recording sys.Kernel for tests that must observe
// whether, and how, the process-creation primitive was invoked.
package systest

import (
	"sync"

	"github.com/kbukum/gospawn/sys"
)

// SpawnCall records one invocation of Spawn.
type SpawnCall struct {
	Path     string
	Argv     []string
	Env      []string
	Mappings []sys.Mapping
}

// Kernel is a fake sys.Kernel. Pipe and OpenNull are delegated to the real
// kernel so descriptors behave normally; Spawn, Wait and Kill are scripted.
type Kernel struct {
	mu sync.Mutex

	// SpawnErr, when set, is returned by every Spawn call.
	SpawnErr error
	// PipeErr, when set, is returned by Pipe after PipeOK successful calls.
	PipeErr error
	PipeOK  int
	// Statuses holds the raw wait statuses handed out by Wait, per pid.
	Statuses map[int]int
	// Running marks pids for which Wait reports sys.ErrStillRunning.
	Running map[int]bool

	nextPID int
	pipes   int
	reaped  map[int]bool
	spawns  []SpawnCall
	kills   []int
}

// New returns a fake kernel that hands out pids starting at 1001.
func New() *Kernel {
	return &Kernel{
		Statuses: make(map[int]int),
		Running:  make(map[int]bool),
		nextPID:  1000,
		reaped:   make(map[int]bool),
	}
}

var _ sys.Kernel = (*Kernel)(nil)

func (k *Kernel) Pipe() (int, int, error) {
	k.mu.Lock()
	if k.PipeErr != nil && k.pipes >= k.PipeOK {
		k.mu.Unlock()
		return -1, -1, k.PipeErr
	}
	k.pipes++
	k.mu.Unlock()
	return sys.Default().Pipe()
}

func (k *Kernel) OpenNull(write bool) (int, error) {
	return sys.Default().OpenNull(write)
}

func (k *Kernel) Spawn(path string, argv, env []string, mappings []sys.Mapping) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.spawns = append(k.spawns, SpawnCall{
		Path:     path,
		Argv:     append([]string(nil), argv...),
		Env:      append([]string(nil), env...),
		Mappings: append([]sys.Mapping(nil), mappings...),
	})
	if k.SpawnErr != nil {
		return 0, k.SpawnErr
	}
	k.nextPID++
	return k.nextPID, nil
}

// WaitReady reports sys.ErrNotFound for reaped or unknown pids and returns
// at once otherwise; Wait then decides between a status and ErrStillRunning.
func (k *Kernel) WaitReady(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.reaped[pid] {
		return sys.ErrNotFound
	}
	if _, ok := k.Statuses[pid]; !ok && !k.Running[pid] {
		return sys.ErrNotFound
	}
	return nil
}

func (k *Kernel) Wait(pid int, _ bool) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.reaped[pid] {
		return 0, sys.ErrNotFound
	}
	if k.Running[pid] {
		return 0, sys.ErrStillRunning
	}
	status, ok := k.Statuses[pid]
	if !ok {
		return 0, sys.ErrNotFound
	}
	k.reaped[pid] = true
	return status, nil
}

func (k *Kernel) Kill(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kills = append(k.kills, pid)
	if k.reaped[pid] {
		return sys.ErrNotFound
	}
	return nil
}

// Spawns returns the recorded Spawn calls.
func (k *Kernel) Spawns() []SpawnCall {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]SpawnCall(nil), k.spawns...)
}

// Kills returns the pids passed to Kill.
func (k *Kernel) Kills() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]int(nil), k.kills...)
}

// ExitStatus encodes an exit code as a raw wait status.
func ExitStatus(code int) int {
	return (code & 0xff) << 8
}
