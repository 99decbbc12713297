// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"errors"
	"fmt"
	"math"
)

// Every message is prefixed with "permanent: " so it can be grepped in logs.
// Callers match with errors.Is against the sentinels below; the typed errors
// carry detail and unwrap to their sentinel.

var (
	// ErrInvalidShape is returned for non-square, empty or ragged input.
	ErrInvalidShape = errors.New("permanent: invalid matrix shape")

	// ErrNonFinite is returned when a matrix entry is NaN or ±Inf.
	ErrNonFinite = errors.New("permanent: NaN or Inf entry")

	// ErrSizeLimitExceeded is returned when n exceeds the configured maximum.
	ErrSizeLimitExceeded = errors.New("permanent: matrix size limit exceeded")

	// ErrResourceExhausted is returned when no execution slots could be
	// reserved even after the reduced retry.
	ErrResourceExhausted = errors.New("permanent: execution resources exhausted")

	// ErrInvalidConfig is returned by New for inconsistent options.
	ErrInvalidConfig = errors.New("permanent: invalid configuration")

	// ErrClosed is returned after Engine.Close.
	ErrClosed = errors.New("permanent: engine closed")
)

// ShapeError describes a matrix that is not a non-empty square.
type ShapeError struct {
	Rows, Cols int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("permanent: invalid matrix shape %dx%d", e.Rows, e.Cols)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidShape }

// SizeLimitError reports an n larger than the engine accepts.
type SizeLimitError struct {
	N, Max int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("permanent: matrix size %d exceeds limit %d", e.N, e.Max)
}

func (e *SizeLimitError) Unwrap() error { return ErrSizeLimitExceeded }

// ResourceError reports a slot reservation that could not complete: the
// engine was busy and ctx ended while waiting for a slot. Retried is the
// reduced slot count of the second attempt; Err is the context error.
type ResourceError struct {
	Requested, Retried int
	Err                error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("permanent: could not reserve %d workers (retried with %d): %v",
		e.Requested, e.Retried, e.Err)
}

func (e *ResourceError) Unwrap() []error { return []error{ErrResourceExhausted, e.Err} }

// NumericInstabilityWarning is attached to a Result whose alternating sum
// cancelled badly. It is not returned as an error; the value is still the
// best estimate the engine can produce.
//
// Condition is machine epsilon times the ratio between the sum of absolute
// term magnitudes and the magnitude of the permanent, an estimate of the
// relative error of Value. It is +Inf when the permanent is exactly zero but
// the terms were not.
type NumericInstabilityWarning struct {
	Condition float64
	Threshold float64
}

func (w *NumericInstabilityWarning) Error() string {
	if math.IsInf(w.Condition, 1) {
		return "permanent: numeric instability: result cancelled to zero"
	}
	return fmt.Sprintf("permanent: numeric instability: estimated relative error %.3g exceeds %.3g",
		w.Condition, w.Threshold)
}
