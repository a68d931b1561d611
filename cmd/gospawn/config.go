package main

import (
	"time"

	"github.com/kbukum/gospawn/config"
	"github.com/kbukum/gospawn/observability"
	"github.com/kbukum/gospawn/process"
	"github.com/kbukum/gospawn/validation"
)

const serviceName = "gospawn"

// AppConfig is the gospawn configuration file layout.
//
//	name: gospawn
//	logging:
//	  level: warn
//	process:
//	  timeout: 30s
//	  wait_delay: 2s
//	  stdout: inherit
//	telemetry:
//	  endpoint: localhost:4318
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Process              process.Config  `yaml:"process" mapstructure:"process"`
	Telemetry            TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig enables OTLP export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields. Streams default to inherit so the child
// talks to the terminal directly.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Logging.Level == "" && !c.Debug {
		c.Logging.Level = "warn"
	}
	c.ServiceConfig.ApplyDefaults()

	if c.Process.Name == "" {
		c.Process.Name = serviceName
	}
	for _, mode := range []*string{&c.Process.Stdin, &c.Process.Stdout, &c.Process.Stderr} {
		if *mode == "" {
			*mode = "inherit"
		}
	}
	c.Process.ApplyDefaults()

	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.MetricInterval == 0 {
		c.Telemetry.MetricInterval = 15 * time.Second
	}
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Process.Validate(); err != nil {
		return err
	}
	return validation.Validate(&c.Telemetry)
}

func (c *AppConfig) tracerConfig() *observability.TracerConfig {
	return &observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

func (c *AppConfig) meterConfig() *observability.MeterConfig {
	return &observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		Interval:       c.Telemetry.MetricInterval,
	}
}
