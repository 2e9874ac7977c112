package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/rcuht-go/internal/bench"
	"github.com/yndnr/rcuht-go/internal/cli/output"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
)

// Config is the complete command configuration.
type Config struct {
	Log     logger.Config `koanf:"log" yaml:"log"`
	Output  string        `koanf:"output" yaml:"output"`
	Bench   BenchConfig   `koanf:"bench" yaml:"bench"`
	Soak    SoakConfig    `koanf:"soak" yaml:"soak"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`
}

// BenchConfig configures the bench command.
type BenchConfig struct {
	Mode string `koanf:"mode" yaml:"mode"`
	// Cores falls back to bench.DefaultConfig().Cores when empty.
	Cores         []int         `koanf:"cores" yaml:"cores,omitempty"`
	Objects       uint32        `koanf:"objects" yaml:"objects"`
	Seconds       int           `koanf:"seconds" yaml:"seconds"`
	WriteInterval time.Duration `koanf:"write_interval" yaml:"write_interval"`
	Buckets       uint64        `koanf:"buckets" yaml:"buckets"`
	Pin           bool          `koanf:"pin" yaml:"pin"`
}

// SoakConfig configures the soak command.
type SoakConfig struct {
	Duration    time.Duration `koanf:"duration" yaml:"duration"`
	Readers     int           `koanf:"readers" yaml:"readers"`
	Keys        int           `koanf:"keys" yaml:"keys"`
	InitBuckets uint64        `koanf:"init_buckets" yaml:"init_buckets"`
	MaxBuckets  uint64        `koanf:"max_buckets" yaml:"max_buckets"`
	WriteRate   float64       `koanf:"write_rate" yaml:"write_rate"`
	Seed        uint64        `koanf:"seed" yaml:"seed"`
}

// MetricsConfig configures metrics exposure.
type MetricsConfig struct {
	// Address serves /metrics when non-empty.
	Address string `koanf:"address" yaml:"address"`
	// Dump prints the registry in text format after a run.
	Dump bool `koanf:"dump" yaml:"dump"`
}

// Default returns the built-in configuration.
func Default() *Config {
	b := bench.DefaultConfig()
	s := bench.DefaultSoakConfig()
	return &Config{
		Log:    logger.DefaultConfig(),
		Output: string(output.FormatTable),
		Bench: BenchConfig{
			Mode:          string(b.Mode),
			Objects:       b.Objects,
			Seconds:       b.Seconds,
			WriteInterval: b.WriteInterval,
			Buckets:       b.Buckets,
			Pin:           b.Pin,
		},
		Soak: SoakConfig{
			Duration:    s.Duration,
			Readers:     s.Readers,
			Keys:        s.Keys,
			InitBuckets: s.InitBuckets,
			MaxBuckets:  s.MaxBuckets,
			WriteRate:   s.WriteRate,
			Seed:        s.Seed,
		},
	}
}

// BenchRun converts the bench section to a runner configuration.
func (c *Config) BenchRun() (bench.Config, error) {
	mode, err := bench.ParseMode(c.Bench.Mode)
	if err != nil {
		return bench.Config{}, err
	}
	cores := c.Bench.Cores
	if len(cores) == 0 {
		cores = bench.DefaultConfig().Cores
	}
	cfg := bench.Config{
		Mode:          mode,
		Cores:         cores,
		Objects:       c.Bench.Objects,
		Seconds:       c.Bench.Seconds,
		WriteInterval: c.Bench.WriteInterval,
		Buckets:       c.Bench.Buckets,
		Pin:           c.Bench.Pin,
	}
	return cfg, cfg.Validate()
}

// SoakRun converts the soak section to a soak configuration.
func (c *Config) SoakRun() (bench.SoakConfig, error) {
	cfg := bench.SoakConfig{
		Duration:    c.Soak.Duration,
		Readers:     c.Soak.Readers,
		Keys:        c.Soak.Keys,
		InitBuckets: c.Soak.InitBuckets,
		MaxBuckets:  c.Soak.MaxBuckets,
		WriteRate:   c.Soak.WriteRate,
		Seed:        c.Soak.Seed,
	}
	return cfg, cfg.Validate()
}

// Verify checks every section and returns all problems found.
func (c *Config) Verify() error {
	var errs []error
	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: want text or json, got %q", c.Log.Format))
	}
	if _, err := output.ParseFormat(c.Output); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}
	if _, err := c.BenchRun(); err != nil {
		errs = append(errs, fmt.Errorf("bench: %w", err))
	}
	if _, err := c.SoakRun(); err != nil {
		errs = append(errs, fmt.Errorf("soak: %w", err))
	}
	return errors.Join(errs...)
}
