package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/gospawn/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the spawn layer.
type Metrics struct {
	spawnTotal  metric.Int64Counter
	spawnErrors metric.Int64Counter
	active      metric.Int64UpDownCounter
	exitTotal   metric.Int64Counter
	lifetime    metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	spawnTotal, err := meter.Int64Counter("process.spawn.total",
		metric.WithDescription("Total number of spawned child processes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.spawn.total counter: %w", err)
	}

	spawnErrors, err := meter.Int64Counter("process.spawn.errors",
		metric.WithDescription("Spawn attempts that failed, by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.spawn.errors counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("process.active",
		metric.WithDescription("Children spawned and not yet reaped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.active gauge: %w", err)
	}

	exitTotal, err := meter.Int64Counter("process.exit.total",
		metric.WithDescription("Reaped children, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.exit.total counter: %w", err)
	}

	lifetime, err := meter.Float64Histogram("process.lifetime",
		metric.WithDescription("Time from spawn to reap in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.lifetime histogram: %w", err)
	}

	return &Metrics{
		spawnTotal:  spawnTotal,
		spawnErrors: spawnErrors,
		active:      active,
		exitTotal:   exitTotal,
		lifetime:    lifetime,
	}, nil
}

// RecordSpawn records a successful spawn of program.
func (m *Metrics) RecordSpawn(ctx context.Context, program string) {
	if m == nil {
		return
	}
	m.spawnTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("program", program)))
	m.active.Add(ctx, 1)
}

// RecordSpawnError records a failed spawn attempt.
func (m *Metrics) RecordSpawnError(ctx context.Context, program, code string) {
	if m == nil {
		return
	}
	m.spawnErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("program", program),
		attribute.String("code", code),
	))
}

// RecordExit records a reaped child and how long it lived.
func (m *Metrics) RecordExit(ctx context.Context, program string, success bool, lifetime time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	m.active.Add(ctx, -1)
	m.exitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("program", program),
		attribute.String("status", status),
	))
	m.lifetime.Record(ctx, lifetime.Seconds(), metric.WithAttributes(attribute.String("program", program)))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on the global meter provider, created
// on first use. It returns nil if the instruments cannot be created; every
// Record method accepts a nil receiver.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(Meter(defaultTracerName))
		if err != nil {
			logger.Warn("spawn metrics disabled", logger.ErrorFields("new_metrics", err))
			return
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
