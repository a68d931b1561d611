package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/kbukum/gospawn/errors"
)

func TestBulkhead_AllowsRequestsWithinLimit(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 3})

	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func() error {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if b.InUse() != 0 {
		t.Errorf("expected all slots released, got %d in use", b.InUse())
	}
}

// hold occupies one slot of b until release is closed.
func hold(t *testing.T, b *Bulkhead) (release chan struct{}) {
	t.Helper()
	started := make(chan struct{})
	release = make(chan struct{})
	go b.Execute(context.Background(), func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	return release
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "spawn", MaxConcurrent: 1})
	release := hold(t, b)
	defer close(release)

	err := b.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("expected ErrBulkheadFull, got %v", err)
	}
	appErr, ok := goerrors.AsAppError(err)
	if !ok || appErr.Code != goerrors.ErrCodeResourceExhausted {
		t.Fatalf("expected RESOURCE_EXHAUSTED, got %v", err)
	}
	if !appErr.Retryable {
		t.Error("a full bulkhead should be retryable")
	}
	if appErr.Details["bulkhead"] != "spawn" {
		t.Errorf("expected bulkhead detail, got %v", appErr.Details)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 1, MaxWait: time.Second})
	release := hold(t, b)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	if err := b.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("expected the waiter to get the slot, got %v", err)
	}
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	release := hold(t, b)
	defer close(release)

	err := b.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_RespectsContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 1, MaxWait: time.Second})
	release := hold(t, b)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Execute(ctx, func() error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if goerrors.IsAppError(err) {
		t.Error("context errors are returned unwrapped")
	}
}

func TestExecuteWithResult(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})

	got, err := ExecuteWithResult(b, context.Background(), func() (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("expected 42, got %d %v", got, err)
	}
	if b.MaxConcurrent() != 2 {
		t.Errorf("expected 2 slots, got %d", b.MaxConcurrent())
	}
}

func TestNewBulkheadDefault(t *testing.T) {
	if NewBulkhead(BulkheadConfig{}).MaxConcurrent() != 10 {
		t.Error("expected default of 10 slots")
	}
}
