package bootstrap

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/kbukum/gospawn/config"
	"github.com/kbukum/gospawn/logger"
)

type testConfig struct {
	config.ServiceConfig
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), WithLogger(logger.Nop()), WithSignals())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Logger == nil {
		t.Error("expected non-nil logger")
	}
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected cfg.Name 'test-svc', got %q", app.Cfg.Name)
	}
	if len(app.signals) != 0 {
		t.Errorf("expected signals disabled, got %v", app.signals)
	}
}

func TestNewApp_Defaults(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", ""), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.gracefulTimeout != 5*time.Second {
		t.Errorf("expected 5s graceful timeout, got %v", app.gracefulTimeout)
	}
	if len(app.signals) != 2 || app.signals[0] != syscall.SIGINT {
		t.Errorf("expected SIGINT and SIGTERM, got %v", app.signals)
	}
	if app.Cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults applied, got level %q", app.Cfg.Logging.Level)
	}
}

func TestNewApp_ValidationError(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{}}
	_, err := NewApp(cfg, WithLogger(logger.Nop()))
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
	if !strings.Contains(err.Error(), "config validation") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewApp_GracefulTimeout(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", ""), WithLogger(logger.Nop()), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected 1s, got %v", app.gracefulTimeout)
	}
}

func TestRunTask_HookOrder(t *testing.T) {
	app := newTestApp(t)

	var order []string
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start1")
		return nil
	}, func(ctx context.Context) error {
		order = append(order, "start2")
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		order = append(order, "stop1")
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		order = append(order, "stop2")
		return nil
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := "start1,start2,task,stop2,stop1"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestRunTask_TaskErrorWins(t *testing.T) {
	app := newTestApp(t)
	taskErr := errors.New("task failed")
	stopped := false
	app.OnStop(func(ctx context.Context) error {
		stopped = true
		return errors.New("stop failed")
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return taskErr
	})
	if !errors.Is(err, taskErr) {
		t.Errorf("expected task error, got %v", err)
	}
	if !stopped {
		t.Error("stop hooks should run after a failed task")
	}
}

func TestRunTask_StopError(t *testing.T) {
	app := newTestApp(t)
	stopErr := errors.New("flush failed")
	app.OnStop(func(ctx context.Context) error { return stopErr })

	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestRunTask_StartFailure(t *testing.T) {
	app := newTestApp(t)
	startErr := errors.New("no exporter")
	ran, stopped := false, false
	app.OnStart(func(ctx context.Context) error { return startErr })
	app.OnStop(func(ctx context.Context) error {
		stopped = true
		return nil
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, startErr) {
		t.Errorf("expected start error, got %v", err)
	}
	if ran {
		t.Error("task should not run when a start hook fails")
	}
	if !stopped {
		t.Error("stop hooks should still run")
	}
}

func TestRunTask_ContextCancel(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.RunTask(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunTask_Signal(t *testing.T) {
	app, err := NewApp(newTestConfig("svc", ""), WithLogger(logger.Nop()), WithSignals(syscall.SIGUSR1))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("signal did not cancel the task")
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
