// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/qlab-go/qlab/workerpool"
)

// Engine evaluates permanents on a fixed pool of execution units. An Engine
// is safe for concurrent use. Concurrent callers share the pool; when it is
// busy a computation runs on fewer workers or waits for one to free up.
type Engine struct {
	cfg     Config
	pool    *workerpool.Pool
	metrics *metrics
	closed  atomic.Bool
}

// New creates an Engine. The worker pool is started immediately and lives
// until Close.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		pool:    workerpool.New(cfg.PoolSize),
		metrics: newMetrics(cfg.Registerer),
	}, nil
}

// Config returns the resolved configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Close waits for in-flight computations to release their workers and stops
// the pool. Later calls return ErrClosed.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	e.pool.Close()
}

// Permanent computes the permanent of the square matrix m.
//
// Shape and size are checked before any worker starts. Cancelling ctx aborts
// every shard of the computation and returns ctx.Err(). With a fixed Workers
// setting the result is bit-identical across runs; different Workers values
// group the floating-point sum differently and agree only to rounding.
func (e *Engine) Permanent(ctx context.Context, m *Matrix) (Result, error) {
	if e.closed.Load() {
		return Result{}, ErrClosed
	}
	return e.compute(ctx, m)
}

var defaultEngine = sync.OnceValues(func() (*Engine, error) {
	return New()
})

// Permanent computes the permanent of m on a shared default Engine sized to
// the hardware.
func Permanent(m *Matrix) (complex128, error) {
	e, err := defaultEngine()
	if err != nil {
		return 0, err
	}
	res, err := e.Permanent(context.Background(), m)
	return res.Value, err
}
