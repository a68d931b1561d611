package process

import (
	"context"
	"time"

	"github.com/kbukum/gospawn/resilience"
	"github.com/kbukum/gospawn/validation"
)

// Config configures a process adapter.
type Config struct {
	// Name identifies this adapter instance in logs.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// Timeout is the default execution timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	// WaitDelay bounds how long output is read after the child exits. Zero
	// uses DefaultWaitDelay.
	WaitDelay time.Duration `yaml:"wait_delay,omitempty" mapstructure:"wait_delay" validate:"gte=0"`
	// Stdin, Stdout and Stderr are the default stream modes: inherit, null
	// or pipe.
	Stdin  string `yaml:"stdin,omitempty" mapstructure:"stdin" validate:"omitempty,oneof=inherit null pipe"`
	Stdout string `yaml:"stdout,omitempty" mapstructure:"stdout" validate:"omitempty,oneof=inherit null pipe"`
	Stderr string `yaml:"stderr,omitempty" mapstructure:"stderr" validate:"omitempty,oneof=inherit null pipe"`
	// Retry retries spawns that fail for transient reasons. Nil disables it.
	Retry *resilience.RetryConfig `yaml:"retry,omitempty" mapstructure:"retry"`
	// MaxConcurrent caps the number of children running at once through
	// this adapter. Zero means no limit.
	MaxConcurrent int `yaml:"max_concurrent,omitempty" mapstructure:"max_concurrent" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "process"
	}
	if c.Stdin == "" {
		c.Stdin = "null"
	}
	if c.Stdout == "" {
		c.Stdout = "pipe"
	}
	if c.Stderr == "" {
		c.Stderr = "pipe"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Adapter runs subprocesses with configured defaults.
type Adapter struct {
	config Config
	runner *Runner
}

// NewAdapter creates a new process adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rc := RunnerConfig{Retry: cfg.Retry}
	if cfg.MaxConcurrent > 0 {
		rc.Bulkhead = &resilience.BulkheadConfig{
			Name:          cfg.Name,
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		}
	}
	return &Adapter{config: cfg, runner: NewRunner(rc)}, nil
}

// Run executes a request, applying adapter-level defaults.
func (a *Adapter) Run(ctx context.Context, req Request) (*Result, error) {
	if req.StdinMode == "" {
		req.StdinMode = a.config.Stdin
	}
	if req.WaitDelay == 0 {
		req.WaitDelay = a.config.WaitDelay
	}
	if req.StdoutMode == "" {
		req.StdoutMode = a.config.Stdout
	}
	if req.StderrMode == "" {
		req.StderrMode = a.config.Stderr
	}
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	return a.runner.Run(ctx, req)
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// Config returns the effective configuration.
func (a *Adapter) Config() Config {
	return a.config
}
