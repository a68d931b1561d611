// gospawn - run a program with configurable standard streams
//
// Usage:
//
//	gospawn [flags] -- <program> [args...]
//	gospawn --version
//
// The exit status is the child's exit code, 128+N when the child dies from
// signal N, 124 on timeout, 126 when the program cannot be executed, 127
// when it cannot be found and 125 for any other gospawn failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/gospawn/args"
	"github.com/kbukum/gospawn/bootstrap"
	"github.com/kbukum/gospawn/config"
	goerrors "github.com/kbukum/gospawn/errors"
	"github.com/kbukum/gospawn/logger"
	"github.com/kbukum/gospawn/observability"
	"github.com/kbukum/gospawn/process"
	"github.com/kbukum/gospawn/validation"
	"github.com/kbukum/gospawn/version"
)

const (
	exitTimeout  = 124
	exitFailure  = 125
	exitNoExec   = 126
	exitNotFound = 127
)

var streamModes = []string{"inherit", "null", "pipe"}

type options struct {
	configFile  string
	stdin       string
	stdout      string
	stderr      string
	timeout     time.Duration
	logLevel    string
	logFormat   string
	endpoint    string
	jsonOutput  bool
	showVersion bool
}

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := args.Init(argv)
	before, command, hasDash := a.Split()

	fs := flag.NewFlagSet(a.Program(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configFile, "config", "", "Config file (default: search ./config.yml, ~/.config/gospawn, /etc/gospawn)")
	fs.StringVar(&opts.stdin, "stdin", "", "Child stdin: inherit, null, pipe")
	fs.StringVar(&opts.stdout, "stdout", "", "Child stdout: inherit, null, pipe")
	fs.StringVar(&opts.stderr, "stderr", "", "Child stderr: inherit, null, pipe")
	fs.DurationVarP(&opts.timeout, "timeout", "t", 0, "Kill the child after this long (0 = no limit)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format: json, console, pretty")
	fs.StringVar(&opts.endpoint, "otlp-endpoint", "", "OTLP HTTP endpoint host:port for traces and metrics")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Print errors and version as JSON")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, `gospawn - run a program with configurable standard streams

Usage:
  gospawn [flags] -- <program> [args...]
  gospawn --version

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(before); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitFailure
	}
	if !hasDash {
		command = fs.Args()
	}

	if opts.showVersion {
		return printVersion(stdout, opts.jsonOutput)
	}

	if err := validateFlags(fs, &opts, command); err != nil {
		return report(stderr, opts.jsonOutput, err)
	}

	cfg, err := loadConfig(fs, &opts)
	if err != nil {
		return report(stderr, opts.jsonOutput, err)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return report(stderr, opts.jsonOutput, err)
	}
	if cfg.Telemetry.Endpoint != "" {
		registerTelemetry(app)
	}

	adapter, err := process.NewAdapter(cfg.Process)
	if err != nil {
		return report(stderr, opts.jsonOutput, err)
	}

	req := process.Request{Binary: command[0], Args: command[1:]}
	if adapter.Config().Stdin == "pipe" {
		req.Stdin = stdin
	}

	var result *process.Result
	runErr := app.RunTask(context.Background(), func(ctx context.Context) error {
		var err error
		result, err = adapter.Run(ctx, req)
		return err
	})

	if result != nil {
		_, _ = stdout.Write(result.Stdout)
		_, _ = stderr.Write(result.Stderr)
	}
	return exitCode(stderr, opts.jsonOutput, result, runErr)
}

func validateFlags(fs *flag.FlagSet, opts *options, command []string) error {
	v := validation.New()
	for _, f := range []struct{ name, value string }{
		{"stdin", opts.stdin},
		{"stdout", opts.stdout},
		{"stderr", opts.stderr},
	} {
		if fs.Changed(f.name) {
			v.OneOf(f.name, f.value, streamModes)
		}
	}
	if fs.Changed("log-level") {
		v.OneOf("log-level", opts.logLevel, []string{"trace", "debug", "info", "warn", "error", "disabled"})
	}
	if fs.Changed("log-format") {
		v.OneOf("log-format", opts.logFormat, []string{"json", logger.FormatConsole, logger.FormatPretty, "text"})
	}
	v.Custom(opts.timeout >= 0, "timeout", "must not be negative")
	v.Custom(len(command) > 0, "program", "is required after --")
	for _, arg := range command {
		v.NoNUL("program", arg)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// loadConfig reads the config file and environment, then applies flags
// the user set explicitly.
func loadConfig(fs *flag.FlagSet, opts *options) (*AppConfig, error) {
	cfg := &AppConfig{}
	loaderOpts := []config.LoaderOption{config.WithEnvPrefix("GOSPAWN")}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}
	if err := config.LoadConfig(serviceName, cfg, loaderOpts...); err != nil {
		return nil, err
	}

	if fs.Changed("stdin") {
		cfg.Process.Stdin = opts.stdin
	}
	if fs.Changed("stdout") {
		cfg.Process.Stdout = opts.stdout
	}
	if fs.Changed("stderr") {
		cfg.Process.Stderr = opts.stderr
	}
	if fs.Changed("timeout") {
		cfg.Process.Timeout = opts.timeout
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if fs.Changed("otlp-endpoint") {
		cfg.Telemetry.Endpoint = opts.endpoint
	}
	return cfg, nil
}

func registerTelemetry(app *bootstrap.App[*AppConfig]) {
	var (
		tp *sdktrace.TracerProvider
		mp *metric.MeterProvider
	)
	app.OnStart(func(ctx context.Context) error {
		var err error
		tp, err = observability.InitTracer(ctx, app.Cfg.tracerConfig())
		if err != nil {
			return err
		}
		mp, err = observability.InitMeter(ctx, app.Cfg.meterConfig())
		return err
	})
	app.OnStop(func(ctx context.Context) error {
		var errs []error
		if tp != nil {
			errs = append(errs, tp.Shutdown(ctx))
		}
		if mp != nil {
			errs = append(errs, mp.Shutdown(ctx))
		}
		return errors.Join(errs...)
	})
}

func exitCode(stderr io.Writer, jsonOutput bool, result *process.Result, err error) int {
	var exitErr *process.ExitStatusError
	if errors.As(err, &exitErr) {
		if code, ok := exitErr.Code(); ok {
			return code
		}
		if sig, ok := exitErr.ExitStatus().Signal(); ok {
			return 128 + int(sig)
		}
		return exitFailure
	}
	if err != nil {
		return report(stderr, jsonOutput, err)
	}
	if result != nil && result.ExitCode >= 0 {
		return result.ExitCode
	}
	return 0
}

// report prints err and maps it to an exit status.
func report(w io.Writer, jsonOutput bool, err error) int {
	appErr, ok := goerrors.AsAppError(err)
	if !ok {
		appErr = goerrors.Internal(err)
	}
	if jsonOutput {
		enc := json.NewEncoder(w)
		_ = enc.Encode(appErr.ToResponse())
	} else {
		fmt.Fprintf(w, "gospawn: %v\n", err)
	}

	switch appErr.Code {
	case goerrors.ErrCodeTimeout:
		return exitTimeout
	case goerrors.ErrCodeSpawnFailed:
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return exitNotFound
		}
		return exitNoExec
	default:
		return exitFailure
	}
}

func printVersion(w io.Writer, jsonOutput bool) int {
	info := version.Get()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			return exitFailure
		}
		return 0
	}
	fmt.Fprintf(w, "gospawn %s\n", info)
	return 0
}
