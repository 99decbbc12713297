// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	assert.Equal(t, 4, pool.NumWorkers())
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	assert.Equal(t, runtime.GOMAXPROCS(0), pool.NumWorkers())
}

func TestReserve(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	a, err := pool.Reserve(3)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Size())

	_, err = pool.Reserve(2)
	require.ErrorIs(t, err, ErrNoSlots)

	b, err := pool.Reserve(1)
	require.NoError(t, err)

	a.Release()
	a.Release() // second release must not free extra slots

	c, err := pool.Reserve(3)
	require.NoError(t, err)
	_, err = pool.Reserve(1)
	require.ErrorIs(t, err, ErrNoSlots)

	b.Release()
	c.Release()
}

func TestReserveClamps(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	l, err := pool.Reserve(16)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Size())
	l.Release()

	l, err = pool.Reserve(0)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Size())
	l.Release()
}

func TestAcquireWaits(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	held, err := pool.Reserve(2)
	require.NoError(t, err)

	got := make(chan *Lease, 1)
	go func() {
		l, err := pool.Acquire(context.Background(), 1)
		assert.NoError(t, err)
		got <- l
	}()

	select {
	case <-got:
		t.Fatal("Acquire returned while every slot was held")
	case <-time.After(20 * time.Millisecond):
	}
	held.Release()
	l := <-got
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Size())
	l.Release()
}

func TestAcquireContextDone(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	held, err := pool.Reserve(1)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseWakesAcquire(t *testing.T) {
	pool := New(1)
	held, err := pool.Reserve(1)
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background(), 1)
		waitErr <- err
	}()
	// Let the waiter queue up before Close.
	time.Sleep(10 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		pool.Close()
		close(closed)
	}()
	require.Eventually(t, pool.closed.Load, time.Second, time.Millisecond)
	held.Release()
	<-closed
	require.ErrorIs(t, <-waitErr, ErrClosed)

	_, err = pool.Acquire(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestParallelForAtomic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	lease, err := pool.Reserve(4)
	require.NoError(t, err)
	defer lease.Release()

	n := 100
	results := make([]int, n)

	err = lease.ParallelForAtomic(context.Background(), n, func(i int) error {
		results[i] = i * 2
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForAtomicSingleSlot(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	lease, err := pool.Reserve(1)
	require.NoError(t, err)
	defer lease.Release()

	var order []int
	err = lease.ParallelForAtomic(context.Background(), 5, func(i int) error {
		order = append(order, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestParallelForAtomicError(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	lease, err := pool.Reserve(4)
	require.NoError(t, err)
	defer lease.Release()

	boom := errors.New("boom")
	var calls atomic.Int32
	err = lease.ParallelForAtomic(context.Background(), 1000, func(i int) error {
		calls.Add(1)
		if i == 3 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, int(calls.Load()), 1000)
}

func TestParallelForAtomicCancelled(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	lease, err := pool.Reserve(2)
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	err = lease.ParallelForAtomic(ctx, 10, func(int) error {
		called.Store(true)
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called.Load())
}

func TestParallelForZeroN(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	lease, err := pool.Reserve(4)
	require.NoError(t, err)
	defer lease.Release()

	var called bool
	err = lease.ParallelForAtomic(context.Background(), 0, func(int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "ParallelForAtomic with n=0 should not call fn")
}

func TestCloseMultipleTimes(t *testing.T) {
	pool := New(4)
	pool.Close()
	pool.Close() // Should not panic

	_, err := pool.Reserve(1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseWaitsForLeases(t *testing.T) {
	pool := New(2)
	lease, err := pool.Reserve(2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()

	err = lease.ParallelForAtomic(context.Background(), 8, func(int) error { return nil })
	require.NoError(t, err)
	lease.Release()
	<-done
}

func BenchmarkParallelForAtomic(b *testing.B) {
	pool := New(0) // Use GOMAXPROCS
	defer pool.Close()

	lease, err := pool.Reserve(pool.NumWorkers())
	if err != nil {
		b.Fatal(err)
	}
	defer lease.Release()

	n := 1000
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = lease.ParallelForAtomic(ctx, n, func(j int) error {
			_ = j * j
			return nil
		})
	}
}
