// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// permByPermutations is the textbook O(n!·n) definition, used as reference.
func permByPermutations(m *Matrix) complex128 {
	n, _ := m.Dims()
	used := make([]bool, n)
	var rec func(row int) complex128
	rec = func(row int) complex128 {
		if row == n {
			return 1
		}
		var s complex128
		for j := range n {
			if used[j] {
				continue
			}
			used[j] = true
			s += m.At(row, j) * rec(row+1)
			used[j] = false
		}
		return s
	}
	return rec(0)
}

func randomMatrix(t testing.TB, seed uint64, n int) *Matrix {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]complex128, n*n)
	for i := range data {
		data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	m, err := NewMatrix(n, n, data)
	require.NoError(t, err)
	return m
}

func newTestEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func relErr(got, want complex128) float64 {
	d := cmplx.Abs(got - want)
	if w := cmplx.Abs(want); w > 0 {
		return d / w
	}
	return d
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// splitRow separates v into its real and imaginary lanes.
func splitRow(v []complex128) (re, im []float64) {
	re = make([]float64, len(v))
	im = make([]float64, len(v))
	for i, x := range v {
		re[i], im[i] = real(x), imag(x)
	}
	return re, im
}
