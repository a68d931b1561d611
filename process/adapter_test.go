package process_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/process"
	"github.com/kbukum/gospawn/resilience"
	"github.com/kbukum/gospawn/sys/systest"
)

func TestNewAdapter_Defaults(t *testing.T) {
	a, err := process.NewAdapter(process.Config{})
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	cfg := a.Config()
	if a.Name() != "process" {
		t.Errorf("name = %q", a.Name())
	}
	if cfg.Stdin != "null" || cfg.Stdout != "pipe" || cfg.Stderr != "pipe" {
		t.Errorf("modes = %s/%s/%s", cfg.Stdin, cfg.Stdout, cfg.Stderr)
	}
}

func TestNewAdapter_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  process.Config
	}{
		{"bad stdout", process.Config{Stdout: "file"}},
		{"negative timeout", process.Config{Timeout: -time.Second}},
		{"negative concurrency", process.Config{MaxConcurrent: -1}},
		{"negative wait delay", process.Config{WaitDelay: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := process.NewAdapter(tt.cfg)
			if goerrors.CodeOf(err) != goerrors.ErrCodeInvalidInput {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestAdapter_Run(t *testing.T) {
	a, err := process.NewAdapter(process.Config{Name: "echo"})
	if err != nil {
		t.Fatal(err)
	}
	result, err := a.Run(context.Background(), process.Request{Binary: "echo", Args: []string{"ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "ok\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}
}

func TestAdapter_RequestModeOverridesDefault(t *testing.T) {
	a, err := process.NewAdapter(process.Config{Stdout: "null"})
	if err != nil {
		t.Fatal(err)
	}
	result, err := a.Run(context.Background(), process.Request{
		Binary:     "echo",
		Args:       []string{"visible"},
		StdoutMode: "pipe",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "visible\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}
}

func TestAdapter_Timeout(t *testing.T) {
	a, err := process.NewAdapter(process.Config{Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Run(context.Background(), process.Request{Binary: "sleep", Args: []string{"10"}})
	if goerrors.CodeOf(err) != goerrors.ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestAdapter_WaitDelay(t *testing.T) {
	a, err := process.NewAdapter(process.Config{WaitDelay: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	_, err = a.Run(context.Background(), process.Request{Binary: "sh", Args: []string{"-c", "sleep 3 &"}})
	if !errors.Is(err, process.ErrWaitDelay) {
		t.Errorf("expected ErrWaitDelay, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Errorf("Run returned after %v", elapsed)
	}
}

func TestRunner_RetriesTransientSpawnFailure(t *testing.T) {
	k := systest.New()
	k.SpawnErr = unix.EAGAIN

	var retries atomic.Int32
	r := process.NewRunner(process.RunnerConfig{
		Retry: &resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  1,
			OnRetry: func(int, error, time.Duration) {
				retries.Add(1)
			},
		},
	})
	_, err := r.Run(context.Background(), process.Request{Binary: "/bin/true", Kernel: k})
	if goerrors.CodeOf(err) != goerrors.ErrCodeSpawnFailed {
		t.Fatalf("expected SPAWN_FAILED, got %v", err)
	}
	if n := len(k.Spawns()); n != 3 {
		t.Errorf("spawn attempts = %d, want 3", n)
	}
	if retries.Load() != 2 {
		t.Errorf("retries = %d, want 2", retries.Load())
	}
}

func TestRunner_DoesNotRetryExitFailure(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	result, err := r.Run(context.Background(), process.Request{
		Binary: "sh",
		Args:   []string{"-c", "echo once; exit 1"},
	})
	if err == nil {
		t.Fatal("expected exit failure")
	}
	if result == nil || string(result.Stdout) != "once\n" {
		t.Errorf("expected a single run's output, got %+v", result)
	}
}

func TestRunner_NonTransientNotRetried(t *testing.T) {
	k := systest.New()
	k.SpawnErr = unix.EACCES
	r := process.NewRunner(process.RunnerConfig{
		Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	_, err := r.Run(context.Background(), process.Request{Binary: "/bin/true", Kernel: k})
	if goerrors.CodeOf(err) != goerrors.ErrCodeSpawnFailed {
		t.Fatalf("expected SPAWN_FAILED, got %v", err)
	}
	if n := len(k.Spawns()); n != 1 {
		t.Errorf("spawn attempts = %d, want 1", n)
	}
}

func TestRunner_BulkheadLimitsConcurrency(t *testing.T) {
	a, err := process.NewAdapter(process.Config{MaxConcurrent: 1})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Run(context.Background(), process.Request{Binary: "sleep", Args: []string{"0.3"}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var full int
	for err := range errs {
		if goerrors.CodeOf(err) == goerrors.ErrCodeResourceExhausted {
			full++
		} else if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if full != 1 {
		t.Errorf("expected one run rejected by the bulkhead, got %d", full)
	}
}

func TestRunner_Nil(t *testing.T) {
	var r *process.Runner
	result, err := r.Run(context.Background(), process.Request{Binary: "true"})
	if err != nil || result.ExitCode != 0 {
		t.Errorf("nil runner should run directly: %v", err)
	}
}
