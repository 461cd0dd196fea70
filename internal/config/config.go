// Package config loads and validates blametally configuration from file,
// environment, and defaults.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level configuration struct for blametally.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Output   OutputConfig   `mapstructure:"output"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// PipelineConfig holds fan-out/fan-in resource knobs.
type PipelineConfig struct {
	Workers         int    `mapstructure:"workers"`
	Mode            string `mapstructure:"mode"`
	QueueSize       int    `mapstructure:"queue_size"`
	ResultQueueSize int    `mapstructure:"result_queue_size"`
	RetryAttempts   int    `mapstructure:"retry_attempts"`
	RetryInterval   string `mapstructure:"retry_interval"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	Top     int    `mapstructure:"top"`
	NoColor bool   `mapstructure:"no_color"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Execution mode values accepted in pipeline.mode.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// Output format values accepted in output.format.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatChart = "chart"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("pipeline.workers must be non-negative")
	// ErrInvalidMode indicates an unknown execution mode.
	ErrInvalidMode = errors.New("pipeline.mode must be sequential or concurrent")
	// ErrInvalidQueueSize indicates a queue capacity is negative.
	ErrInvalidQueueSize = errors.New("pipeline queue sizes must be non-negative")
	// ErrInvalidRetryAttempts indicates the retry budget is negative.
	ErrInvalidRetryAttempts = errors.New("pipeline.retry_attempts must be non-negative")
	// ErrInvalidRetryInterval indicates the retry interval cannot be parsed.
	ErrInvalidRetryInterval = errors.New("pipeline.retry_interval must be a duration")
	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("output.format must be table, csv, or chart")
	// ErrInvalidTop indicates a negative top-K value.
	ErrInvalidTop = errors.New("output.top must be non-negative")
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Pipeline.Mode != ModeSequential && c.Pipeline.Mode != ModeConcurrent {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Pipeline.Mode)
	}

	if c.Pipeline.QueueSize < 0 || c.Pipeline.ResultQueueSize < 0 {
		return ErrInvalidQueueSize
	}

	if c.Pipeline.RetryAttempts < 0 {
		return ErrInvalidRetryAttempts
	}

	if c.Pipeline.RetryInterval != "" {
		_, err := time.ParseDuration(c.Pipeline.RetryInterval)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRetryInterval, c.Pipeline.RetryInterval)
		}
	}

	if c.Output.Format != FormatTable && c.Output.Format != FormatCSV && c.Output.Format != FormatChart {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if c.Output.Top < 0 {
		return ErrInvalidTop
	}

	return nil
}

// RetryIntervalDuration returns the parsed retry interval. Call Validate
// first; an unparsable value falls back to zero.
func (c *Config) RetryIntervalDuration() time.Duration {
	if c.Pipeline.RetryInterval == "" {
		return 0
	}

	interval, err := time.ParseDuration(c.Pipeline.RetryInterval)
	if err != nil {
		return 0
	}

	return interval
}
