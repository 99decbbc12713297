// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultMaxSize is the default cap on n. 2^30 terms of 30 products each
	// is already minutes of CPU time.
	DefaultMaxSize = 30

	// HardMaxSize is the largest n a uint64 subset mask can index.
	HardMaxSize = 63

	// DefaultWarnThreshold is the estimated relative error above which a
	// NumericInstabilityWarning is attached.
	DefaultWarnThreshold = 1e-8
)

// Config holds the engine settings. Use the With* options to change them.
type Config struct {
	// MaxSize is the largest n accepted before failing fast.
	MaxSize int

	// Workers is the number of shards each matrix is split into, and the
	// number of pool slots requested for it.
	Workers int

	// BatchConcurrency bounds how many matrices Batch evaluates at once.
	BatchConcurrency int

	// PoolSize is the total number of execution units shared by all
	// computations of the engine.
	PoolSize int

	// FailFast makes Batch cancel the remaining matrices on the first error.
	FailFast bool

	// WarnThreshold is the instability warning threshold.
	WarnThreshold float64

	// Kernel selects the row-product implementation.
	Kernel KernelLevel

	// Logger receives debug and warning records. Defaults to a discarding
	// logger.
	Logger *slog.Logger

	// Registerer, when non-nil, receives the engine metrics.
	Registerer prometheus.Registerer

	// OnResult is called as each batch entry settles, with its input index.
	// With BatchConcurrency > 1 it may be called concurrently.
	OnResult func(i int, r BatchResult)

	workersSet bool
}

// Option configures an Engine.
type Option func(*Config)

// WithMaxSize sets the largest accepted n (1..HardMaxSize).
func WithMaxSize(n int) Option {
	return func(c *Config) { c.MaxSize = n }
}

// WithWorkers sets the number of shards and slots per matrix.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
		c.workersSet = true
	}
}

// WithBatchConcurrency sets how many matrices Batch evaluates in parallel.
func WithBatchConcurrency(n int) Option {
	return func(c *Config) { c.BatchConcurrency = n }
}

// WithPoolSize sets the total number of execution units.
func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

// WithFailFast makes Batch abort siblings on the first failure.
func WithFailFast(on bool) Option {
	return func(c *Config) { c.FailFast = on }
}

// WithWarnThreshold sets the instability warning threshold.
func WithWarnThreshold(t float64) Option {
	return func(c *Config) { c.WarnThreshold = t }
}

// WithKernel overrides the detected row-product kernel.
func WithKernel(k KernelLevel) Option {
	return func(c *Config) { c.Kernel = k }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithRegisterer registers the engine metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = r }
}

// WithOnResult installs a per-entry batch hook.
func WithOnResult(fn func(i int, r BatchResult)) Option {
	return func(c *Config) { c.OnResult = fn }
}

// defaultConfig returns the defaults before options are applied. QLAB_WORKERS
// overrides the hardware-derived worker count.
func defaultConfig() Config {
	return Config{
		MaxSize:          DefaultMaxSize,
		BatchConcurrency: 1,
		PoolSize:         runtime.GOMAXPROCS(0),
		WarnThreshold:    DefaultWarnThreshold,
		Kernel:           CurrentKernel(),
	}
}

func workersEnv() (int, bool) {
	val := os.Getenv("QLAB_WORKERS")
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// resolve fills derived fields and validates the configuration.
func (c *Config) resolve() error {
	if c.MaxSize < 1 || c.MaxSize > HardMaxSize {
		return fmt.Errorf("%w: max size %d not in [1, %d]", ErrInvalidConfig, c.MaxSize, HardMaxSize)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: pool size %d", ErrInvalidConfig, c.PoolSize)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("%w: batch concurrency %d", ErrInvalidConfig, c.BatchConcurrency)
	}
	if c.BatchConcurrency > c.PoolSize {
		return fmt.Errorf("%w: batch concurrency %d exceeds pool size %d",
			ErrInvalidConfig, c.BatchConcurrency, c.PoolSize)
	}
	if !c.workersSet {
		c.Workers = max(1, c.PoolSize/c.BatchConcurrency)
		if n, ok := workersEnv(); ok {
			// The environment can only lower the fair share.
			c.Workers = min(n, c.Workers)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	if c.Workers*c.BatchConcurrency > c.PoolSize {
		return fmt.Errorf("%w: %d matrices × %d workers oversubscribes %d execution units",
			ErrInvalidConfig, c.BatchConcurrency, c.Workers, c.PoolSize)
	}
	if c.WarnThreshold <= 0 || math.IsNaN(c.WarnThreshold) {
		return fmt.Errorf("%w: warn threshold %v", ErrInvalidConfig, c.WarnThreshold)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}
