package bench

import (
	"errors"
	"fmt"
	"math/bits"
	"time"
)

// Config describes one benchmark run.
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`
	// Cores lists the cores to use. The last one runs the writer, every
	// other one runs a reader.
	Cores []int `json:"cores" yaml:"cores"`
	// Objects is the number of keys the writer inserts and removes per
	// iteration.
	Objects uint32 `json:"objects" yaml:"objects"`
	// Seconds is the number of one-second samples to take.
	Seconds       int           `json:"seconds" yaml:"seconds"`
	WriteInterval time.Duration `json:"write_interval" yaml:"write_interval"`
	// Buckets is the fixed bucket count of the rcu table and the shard
	// count of the sharded map.
	Buckets uint64 `json:"buckets" yaml:"buckets"`
	// Pin binds each goroutine to its core.
	Pin bool `json:"pin" yaml:"pin"`
}

// DefaultConfig returns the defaults used by the bench command.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeRCU,
		Cores:         []int{0, 1},
		Objects:       1,
		Seconds:       10,
		WriteInterval: time.Millisecond,
		Buckets:       64,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if len(c.Cores) < 2 {
		return errors.New("at least two cores are required (readers and one writer)")
	}
	seen := make(map[int]bool, len(c.Cores))
	for _, core := range c.Cores {
		if core < 0 {
			return fmt.Errorf("invalid core id %d", core)
		}
		if seen[core] {
			return fmt.Errorf("core %d listed twice", core)
		}
		seen[core] = true
	}
	if c.Seconds <= 0 {
		return errors.New("seconds must be positive")
	}
	if c.WriteInterval < 0 {
		return errors.New("write interval must not be negative")
	}
	if c.Buckets == 0 || bits.OnesCount64(c.Buckets) != 1 {
		return fmt.Errorf("buckets must be a power of two, got %d", c.Buckets)
	}
	return nil
}

// ReaderCores returns the cores that run readers.
func (c Config) ReaderCores() []int {
	return c.Cores[:len(c.Cores)-1]
}

// WriterCore returns the core that runs the writer.
func (c Config) WriterCore() int {
	return c.Cores[len(c.Cores)-1]
}
