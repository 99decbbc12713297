// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchResult is one entry of a Batch, aligned with its input index.
type BatchResult struct {
	Result
	Err error
}

// Batch computes the permanent of every matrix in ms, evaluating up to
// BatchConcurrency matrices at once. out[i] always belongs to ms[i].
//
// A failing matrix only records its error unless FailFast is set, in which
// case the remaining matrices are cancelled and the first error is returned.
// When ctx is cancelled, entries that had not started carry ctx.Err(),
// in-flight entries stop at their next cancellation check, and Batch returns
// ctx.Err() once every entry has settled.
func (e *Engine) Batch(ctx context.Context, ms []*Matrix) ([]BatchResult, error) {
	out := make([]BatchResult, len(ms))
	if e.closed.Load() {
		return out, ErrClosed
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)

	for i, m := range ms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
			} else {
				r, err := e.Permanent(gctx, m)
				out[i] = BatchResult{Result: r, Err: err}
			}
			if e.cfg.OnResult != nil {
				e.cfg.OnResult(i, out[i])
			}
			if out[i].Err != nil && e.cfg.FailFast && ctx.Err() == nil {
				return fmt.Errorf("permanent: batch entry %d: %w", i, out[i].Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
