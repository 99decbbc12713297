// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/cmplx"
	"time"

	"github.com/qlab-go/qlab/workerpool"
)

// minShardLen keeps shards long enough that seeding (O(n²)) and hand-off
// stay negligible next to the enumeration.
const minShardLen = 1 << 10

// epsilon is the unit roundoff of float64.
const epsilon = 0x1p-53

// planShards splits [0, 2^n) into at most workers contiguous shards of near
// equal length. The plan depends only on (n, workers).
func planShards(n, workers int) []Shard {
	total := uint64(1) << uint(n)
	k := uint64(max(workers, 1))
	if limit := total / minShardLen; k > limit {
		k = max(limit, 1)
	}
	size, rem := total/k, total%k

	shards := make([]Shard, k)
	lo := uint64(0)
	for i := range shards {
		hi := lo + size
		if uint64(i) < rem {
			hi++
		}
		shards[i] = Shard{Lo: lo, Hi: hi}
		lo = hi
	}
	return shards
}

// Result is the permanent of one matrix.
type Result struct {
	// Value is the permanent.
	Value complex128

	// Shards is the number of shards the subset space was split into.
	Shards int

	// Workers is the number of pool slots that executed the shards.
	Workers int

	// Condition estimates the relative error of Value (see
	// NumericInstabilityWarning).
	Condition float64

	// Warning is non-nil when Condition exceeded the configured threshold.
	Warning *NumericInstabilityWarning
}

// reserve claims slots for want shards. If the pool is busy it retries once
// with half as many and then waits for a single slot, so concurrent callers
// queue instead of failing. Only closing the engine or cancelling ctx while
// waiting ends in an error.
func (e *Engine) reserve(ctx context.Context, want int) (*workerpool.Lease, error) {
	lease, err := e.pool.Reserve(want)
	if err == nil {
		return lease, nil
	}
	if errors.Is(err, workerpool.ErrClosed) {
		return nil, ErrClosed
	}

	retry := max(1, want/2)
	e.metrics.slotRetries.Inc()
	e.cfg.Logger.Warn("permanent: reserving workers failed, retrying with fewer",
		slog.Int("requested", want),
		slog.Int("retry", retry))

	lease, err = e.pool.Reserve(retry)
	if err == nil {
		return lease, nil
	}
	if errors.Is(err, workerpool.ErrClosed) {
		return nil, ErrClosed
	}

	e.cfg.Logger.Debug("permanent: waiting for a worker slot", slog.Int("requested", want))
	lease, err = e.pool.Acquire(ctx, 1)
	if err == nil {
		return lease, nil
	}
	if errors.Is(err, workerpool.ErrClosed) {
		return nil, ErrClosed
	}
	return nil, &ResourceError{Requested: want, Retried: retry, Err: err}
}

// compute validates m, fans the shards out over a lease and reduces them.
func (e *Engine) compute(ctx context.Context, m *Matrix) (Result, error) {
	n, err := m.square()
	if err != nil {
		e.metrics.observe(0, 0, outcomeRejected)
		return Result{}, err
	}
	if n > e.cfg.MaxSize {
		e.metrics.observe(n, 0, outcomeRejected)
		return Result{}, &SizeLimitError{N: n, Max: e.cfg.MaxSize}
	}
	if err := ctx.Err(); err != nil {
		e.metrics.observe(n, 0, outcomeCancelled)
		return Result{}, err
	}

	start := time.Now()
	shards := planShards(n, e.cfg.Workers)

	lease, err := e.reserve(ctx, len(shards))
	if err != nil {
		e.metrics.observe(n, 0, outcomeExhausted)
		return Result{}, err
	}
	defer lease.Release()

	colsRe, colsIm := m.columns()
	partials := make([]partialSum, len(shards))
	err = lease.ParallelForAtomic(ctx, len(shards), func(i int) error {
		acc := newRowSums(colsRe, colsIm, n, e.cfg.Kernel)
		ps, err := runShard(ctx, shards[i], acc)
		partials[i] = ps
		return err
	})
	if err != nil {
		e.metrics.observe(n, 0, outcomeCancelled)
		return Result{}, err
	}

	res := e.reduce(n, partials)
	res.Shards = len(shards)
	res.Workers = min(lease.Size(), len(shards))

	elapsed := time.Since(start)
	e.metrics.observe(n, elapsed.Seconds(), outcomeOK)
	e.cfg.Logger.Debug("permanent: computed",
		slog.Int("n", n),
		slog.Int("shards", res.Shards),
		slog.Int("workers", res.Workers),
		slog.String("kernel", e.cfg.Kernel.String()),
		slog.String("simd", SIMDLevel().String()),
		slog.Duration("duration", elapsed))

	if res.Warning != nil {
		e.metrics.warnings.Inc()
		e.cfg.Logger.Warn("permanent: numeric instability",
			slog.Int("n", n),
			slog.Float64("condition", res.Condition),
			slog.Float64("threshold", res.Warning.Threshold))
	}
	return res, nil
}

// reduce sums the partials in shard order and applies the (-1)^n factor of
// Ryser's formula once.
func (e *Engine) reduce(n int, partials []partialSum) Result {
	var total partialSum
	for i := range partials {
		p := &partials[i]
		total.re, total.cre = twoSum(total.re, total.cre, p.re)
		total.re, total.cre = twoSum(total.re, total.cre, p.cre)
		total.im, total.cim = twoSum(total.im, total.cim, p.im)
		total.im, total.cim = twoSum(total.im, total.cim, p.cim)
		total.absSum += p.absSum
	}
	sum, absSum := total.value(), total.absSum
	if n%2 == 1 {
		// 0-x rather than -x keeps zero components positive.
		sum = complex(0-real(sum), 0-imag(sum))
	}

	res := Result{Value: sum}
	mag := cmplx.Abs(sum)
	switch {
	case absSum == 0:
		res.Condition = 0
	case mag == 0:
		res.Condition = math.Inf(1)
	default:
		res.Condition = epsilon * absSum / mag
	}
	if res.Condition > e.cfg.WarnThreshold {
		res.Warning = &NumericInstabilityWarning{
			Condition: res.Condition,
			Threshold: e.cfg.WarnThreshold,
		}
	}
	return res
}
