// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable worker pool for parallel
// computation. A Pool is created once with a fixed number of execution slots
// and reused across many operations; callers reserve a subset of those slots
// with a Lease before fanning work out, so that several independent
// computations can share one pool without oversubscribing it.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	lease, err := pool.Reserve(4)
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//
//	err = lease.ParallelForAtomic(ctx, len(shards), func(i int) error {
//	    return process(shards[i])
//	})
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrClosed is returned by Reserve and Acquire once Close has been called.
	ErrClosed = errors.New("workerpool: pool is closed")

	// ErrNoSlots is returned by Reserve when fewer idle slots than requested
	// are available.
	ErrNoSlots = errors.New("workerpool: not enough idle slots")
)

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	slots      *semaphore.Weighted
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
		slots: semaphore.NewWeighted(int64(numWorkers)),
	}

	// Spawn persistent workers
	for range numWorkers {
		go p.worker()
	}

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. It waits for every outstanding Lease to
// be released before stopping the workers; callers blocked in Acquire then
// wake up with ErrClosed. Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		// Draining all slots blocks until the last lease is released.
		_ = p.slots.Acquire(context.Background(), int64(p.numWorkers))
		close(p.workC)
		p.slots.Release(int64(p.numWorkers))
	})
}

// Reserve claims n idle slots without blocking. It returns ErrNoSlots when
// the pool cannot satisfy the request right now and ErrClosed after Close.
// Requests larger than the pool are clamped to the pool size.
func (p *Pool) Reserve(n int) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	n = min(max(n, 1), p.numWorkers)
	if !p.slots.TryAcquire(int64(n)) {
		return nil, ErrNoSlots
	}
	if p.closed.Load() {
		p.slots.Release(int64(n))
		return nil, ErrClosed
	}
	return &Lease{pool: p, size: n}, nil
}

// Acquire claims n slots, waiting until they are free. It returns ctx.Err()
// if ctx is done first and ErrClosed once Close has been called. Requests
// larger than the pool are clamped to the pool size.
func (p *Pool) Acquire(ctx context.Context, n int) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	n = min(max(n, 1), p.numWorkers)
	if err := p.slots.Acquire(ctx, int64(n)); err != nil {
		return nil, err
	}
	if p.closed.Load() {
		p.slots.Release(int64(n))
		return nil, ErrClosed
	}
	return &Lease{pool: p, size: n}, nil
}

// Lease is a reservation of a fixed number of pool slots. A Lease must be
// released exactly once; it is not safe for concurrent use.
type Lease struct {
	pool     *Pool
	size     int
	released bool
}

// Size returns the number of slots held by the lease.
func (l *Lease) Size() int {
	return l.size
}

// Release returns the slots to the pool. Subsequent calls are no-ops.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.pool.slots.Release(int64(l.size))
}

// ParallelForAtomic executes fn for each index in [0, n) on at most Size()
// workers using atomic work stealing. It blocks until every started call has
// returned. The first non-nil error returned by fn, or the context error,
// stops the hand-out of further indices and is returned.
func (l *Lease) ParallelForAtomic(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}

	workers := min(l.size, n)

	if workers == 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		nextIdx  atomic.Int64
		stop     atomic.Bool
		errOnce  sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
		stop.Store(true)
	}

	wg.Add(workers)
	for range workers {
		l.pool.workC <- workItem{
			fn: func() {
				for !stop.Load() {
					idx := int(nextIdx.Add(1)) - 1
					if idx >= n {
						return
					}
					if err := ctx.Err(); err != nil {
						fail(err)
						return
					}
					if err := fn(idx); err != nil {
						fail(err)
						return
					}
				}
			},
			barrier: &wg,
		}
	}

	wg.Wait()
	return firstErr
}
