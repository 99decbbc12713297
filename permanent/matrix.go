// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"math"
	"math/cmplx"
)

// Matrix is an immutable dense complex matrix in row-major order.
//
// A Matrix may be rectangular; only square matrices have a permanent, and the
// engine reports ErrInvalidShape for anything else.
type Matrix struct {
	rows, cols int
	data       []complex128
}

// NewMatrix builds a rows×cols matrix from row-major data. The slice is
// copied.
func NewMatrix(rows, cols int, data []complex128) (*Matrix, error) {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return nil, &ShapeError{Rows: rows, Cols: cols}
	}
	for _, v := range data {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return nil, ErrNonFinite
		}
	}
	m := &Matrix{rows: rows, cols: cols, data: make([]complex128, len(data))}
	copy(m.data, data)
	return m, nil
}

// FromRows builds a matrix from a slice of rows. All rows must have the same
// non-zero length.
func FromRows(rows [][]complex128) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, &ShapeError{}
	}
	cols := len(rows[0])
	data := make([]complex128, 0, len(rows)*cols)
	for _, r := range rows {
		if len(r) != cols {
			return nil, &ShapeError{Rows: len(rows), Cols: len(r)}
		}
		data = append(data, r...)
	}
	return NewMatrix(len(rows), cols, data)
}

// FromReal builds a complex matrix with zero imaginary parts.
func FromReal(rows [][]float64) (*Matrix, error) {
	c := make([][]complex128, len(rows))
	for i, r := range rows {
		c[i] = make([]complex128, len(r))
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrNonFinite
			}
			c[i][j] = complex(v, 0)
		}
	}
	return FromRows(c)
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := &Matrix{rows: n, cols: n, data: make([]complex128, n*n)}
	for i := range n {
		m.data[i*n+i] = 1
	}
	return m
}

// Ones returns the n×n matrix with every entry equal to 1.
func Ones(n int) *Matrix {
	m := &Matrix{rows: n, cols: n, data: make([]complex128, n*n)}
	for i := range m.data {
		m.data[i] = 1
	}
	return m
}

// Fourier returns the n×n unitary discrete Fourier transform matrix
// U[j][k] = exp(2πi·jk/n)/√n, the transfer matrix of a balanced n-port
// multiport interferometer.
func Fourier(n int) *Matrix {
	m := &Matrix{rows: n, cols: n, data: make([]complex128, n*n)}
	norm := 1 / math.Sqrt(float64(n))
	for j := range n {
		for k := range n {
			phase := 2 * math.Pi * float64((j*k)%n) / float64(n)
			m.data[j*n+k] = cmplx.Rect(norm, phase)
		}
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// At returns the entry at row i, column j. It panics on out-of-range indices
// like a slice access would.
func (m *Matrix) At(i, j int) complex128 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic("permanent: index out of range")
	}
	return m.data[i*m.cols+j]
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []complex128 {
	out := make([]complex128, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

// Submatrix returns the matrix formed by the given rows and columns, in the
// order given. Indices may repeat, which is how multiply-occupied input or
// output modes enter a boson-sampling amplitude.
func (m *Matrix) Submatrix(rowIdx, colIdx []int) (*Matrix, error) {
	if len(rowIdx) == 0 || len(colIdx) == 0 {
		return nil, &ShapeError{Rows: len(rowIdx), Cols: len(colIdx)}
	}
	out := &Matrix{rows: len(rowIdx), cols: len(colIdx), data: make([]complex128, len(rowIdx)*len(colIdx))}
	for a, i := range rowIdx {
		if i < 0 || i >= m.rows {
			return nil, &ShapeError{Rows: m.rows, Cols: m.cols}
		}
		for b, j := range colIdx {
			if j < 0 || j >= m.cols {
				return nil, &ShapeError{Rows: m.rows, Cols: m.cols}
			}
			out.data[a*out.cols+b] = m.data[i*m.cols+j]
		}
	}
	return out, nil
}

// AbsSquared returns the elementwise |m_ij|² matrix, whose permanent gives
// the detection probability for fully distinguishable particles.
func (m *Matrix) AbsSquared() *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, data: make([]complex128, len(m.data))}
	for i, v := range m.data {
		re, im := real(v), imag(v)
		out.data[i] = complex(re*re+im*im, 0)
	}
	return out
}

// square validates that m is a non-empty square matrix and returns n.
func (m *Matrix) square() (int, error) {
	if m == nil {
		return 0, &ShapeError{}
	}
	if m.rows != m.cols || m.rows <= 0 {
		return 0, &ShapeError{Rows: m.rows, Cols: m.cols}
	}
	return m.rows, nil
}

// columns returns the real and imaginary parts in column-major order so that
// the kernel can add or subtract one column with a contiguous vector op.
func (m *Matrix) columns() (re, im []float64) {
	re = make([]float64, len(m.data))
	im = make([]float64, len(m.data))
	for i := range m.rows {
		for j := range m.cols {
			v := m.data[i*m.cols+j]
			re[j*m.rows+i], im[j*m.rows+i] = real(v), imag(v)
		}
	}
	return re, im
}
