// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"math/bits"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"
)

// rowSums holds, for the current column subset S, r[i] = Σ_{j∈S} a[i][j],
// split into real and imaginary lanes so a column update is two vector
// adds. colsRe/colsIm are column-major: column j is [j*n:(j+1)*n].
type rowSums struct {
	n              int
	colsRe, colsIm []float64
	re, im         []float64
	odd            bool
	fma            bool
}

func newRowSums(colsRe, colsIm []float64, n int, k KernelLevel) *rowSums {
	return &rowSums{
		n:      n,
		colsRe: colsRe,
		colsIm: colsIm,
		re:     make([]float64, n),
		im:     make([]float64, n),
		fma:    k == KernelFMA,
	}
}

// seed sets the sums directly from mask in O(n²).
func (r *rowSums) seed(mask uint64) {
	vec.Zero(r.re)
	vec.Zero(r.im)
	for m := mask; m != 0; m &= m - 1 {
		j := bits.TrailingZeros64(m)
		vec.BaseAdd(r.re, r.colsRe[j*r.n:(j+1)*r.n])
		vec.BaseAdd(r.im, r.colsIm[j*r.n:(j+1)*r.n])
	}
	r.odd = bits.OnesCount64(mask)&1 == 1
}

// flip adds column j when on is true and subtracts it otherwise.
func (r *rowSums) flip(j int, on bool) {
	cr := r.colsRe[j*r.n : (j+1)*r.n]
	ci := r.colsIm[j*r.n : (j+1)*r.n]
	if on {
		vec.BaseAdd(r.re, cr)
		vec.BaseAdd(r.im, ci)
	} else {
		vec.BaseSub(r.re, cr)
		vec.BaseSub(r.im, ci)
	}
	r.odd = !r.odd
}

// at returns r[i].
func (r *rowSums) at(i int) complex128 {
	return complex(r.re[i], r.im[i])
}

// term returns (-1)^|S| · Π_i r[i].
func (r *rowSums) term() complex128 {
	var p complex128
	if r.fma {
		p = productFMA(r.re, r.im)
	} else {
		p = productScalar(r.re, r.im)
	}
	if r.odd {
		return -p
	}
	return p
}
