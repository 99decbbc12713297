// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"context"
	"math"
)

// pollMask controls how often a shard checks for cancellation.
const pollMask = 1<<12 - 1

// partialSum accumulates one shard's terms. Real and imaginary parts are
// summed separately with Neumaier compensation, strictly in enumeration
// order, so a shard always produces the same bits.
type partialSum struct {
	re, im   float64
	cre, cim float64
	absSum   float64
	terms    uint64
}

func twoSum(sum, comp, x float64) (float64, float64) {
	t := sum + x
	if math.Abs(sum) >= math.Abs(x) {
		comp += (sum - t) + x
	} else {
		comp += (x - t) + sum
	}
	return t, comp
}

func (p *partialSum) add(t complex128) {
	p.re, p.cre = twoSum(p.re, p.cre, real(t))
	p.im, p.cim = twoSum(p.im, p.cim, imag(t))
	p.absSum += math.Abs(real(t)) + math.Abs(imag(t))
	p.terms++
}

func (p *partialSum) value() complex128 {
	return complex(p.re+p.cre, p.im+p.cim)
}

// Shard is a half-open range [Lo, Hi) of Gray-code indices.
type Shard struct {
	Lo, Hi uint64
}

// Len returns the number of indices in the shard.
func (s Shard) Len() uint64 { return s.Hi - s.Lo }

// runShard sums the signed Ryser terms of every subset in the shard. The
// empty subset (index 0) contributes nothing and is skipped. acc is scratch
// owned by the caller; it is reseeded from the shard's first mask.
func runShard(ctx context.Context, sh Shard, acc *rowSums) (partialSum, error) {
	var ps partialSum
	if sh.Hi <= sh.Lo {
		return ps, nil
	}

	cur := newGrayCursor(sh.Lo, sh.Hi)
	acc.seed(cur.Start())
	if sh.Lo != 0 {
		ps.add(acc.term())
	}

	for k := sh.Lo + 1; ; k++ {
		mask, bit, ok := cur.Next()
		if !ok {
			break
		}
		acc.flip(bit, mask&(1<<uint(bit)) != 0)
		ps.add(acc.term())

		if k&pollMask == 0 {
			if err := ctx.Err(); err != nil {
				return ps, err
			}
		}
	}
	return ps, nil
}
