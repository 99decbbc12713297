// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(c grayCursor) []uint64 {
	masks := []uint64{c.Start()}
	for {
		mask, _, ok := c.Next()
		if !ok {
			return masks
		}
		masks = append(masks, mask)
	}
}

func TestGrayCursorFullRange(t *testing.T) {
	for n := 1; n <= 10; n++ {
		total := uint64(1) << n
		c := newGrayCursor(0, total)
		require.Equal(t, uint64(0), c.Start())

		seen := make(map[uint64]bool, total)
		prev := c.Start()
		seen[prev] = true
		for {
			mask, bit, ok := c.Next()
			if !ok {
				break
			}
			diff := mask ^ prev
			require.Equal(t, 1, bits.OnesCount64(diff), "n=%d: %b -> %b", n, prev, mask)
			require.Equal(t, uint64(1)<<bit, diff)
			require.Less(t, mask, total)
			require.False(t, seen[mask], "n=%d: mask %b visited twice", n, mask)
			seen[mask] = true
			prev = mask
		}
		assert.Len(t, seen, int(total), "n=%d", n)
	}
}

func TestGrayCursorShardsConcatenate(t *testing.T) {
	const n = 9
	full := collect(newGrayCursor(0, 1<<n))

	var joined []uint64
	for _, sh := range []Shard{{0, 3}, {3, 100}, {100, 257}, {257, 512}} {
		joined = append(joined, collect(newGrayCursor(sh.Lo, sh.Hi))...)
	}
	assert.Equal(t, full, joined)
}

func TestGrayCursorReset(t *testing.T) {
	c := newGrayCursor(5, 20)
	first := collect(c)
	for {
		if _, _, ok := c.Next(); !ok {
			break
		}
	}
	c.Reset()
	assert.Equal(t, first, collect(c))
	assert.Len(t, first, 15)
}

func TestGrayCode(t *testing.T) {
	tests := []struct {
		k, want uint64
	}{
		{0, 0b000},
		{1, 0b001},
		{2, 0b011},
		{3, 0b010},
		{4, 0b110},
		{5, 0b111},
		{6, 0b101},
		{7, 0b100},
	}
	for _, tt := range tests {
		if got := grayCode(tt.k); got != tt.want {
			t.Errorf("grayCode(%d) = %03b, want %03b", tt.k, got, tt.want)
		}
	}
}
