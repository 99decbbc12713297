// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import "math/bits"

// grayCode returns the k-th word of the reflected binary Gray code.
func grayCode(k uint64) uint64 {
	return k ^ (k >> 1)
}

// grayCursor walks the Gray-code words with indices in [lo, hi). Consecutive
// words differ in exactly one bit: the bit flipped on the way to index k is
// the number of trailing zeros of k, so the cursor never has to compare masks.
type grayCursor struct {
	lo, hi uint64
	next   uint64
	mask   uint64
}

func newGrayCursor(lo, hi uint64) grayCursor {
	c := grayCursor{lo: lo, hi: hi}
	c.Reset()
	return c
}

// Reset rewinds the cursor to the start of its range.
func (c *grayCursor) Reset() {
	c.next = c.lo + 1
	c.mask = grayCode(c.lo)
}

// Start returns the mask at index lo, used to seed the row sums.
func (c *grayCursor) Start() uint64 {
	return grayCode(c.lo)
}

// Next advances one index and returns the new mask and the flipped bit.
// ok is false once the range is exhausted.
func (c *grayCursor) Next() (mask uint64, bit int, ok bool) {
	if c.next >= c.hi {
		return c.mask, -1, false
	}
	bit = bits.TrailingZeros64(c.next)
	c.mask ^= 1 << uint(bit)
	c.next++
	return c.mask, bit, true
}
