// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"math"
	"os"
	"strconv"

	"github.com/ajroetker/go-highway/hwy"
)

// KernelLevel selects how the row-product of the Ryser term is evaluated.
type KernelLevel int

const (
	// KernelScalar uses plain complex multiplication.
	KernelScalar KernelLevel = iota

	// KernelFMA evaluates the complex product with fused multiply-add,
	// one rounding per real component instead of two.
	KernelFMA
)

// String returns a human-readable name for the kernel level.
func (k KernelLevel) String() string {
	switch k {
	case KernelScalar:
		return "scalar"
	case KernelFMA:
		return "fma"
	default:
		return "unknown"
	}
}

// currentKernel is the detected kernel for this runtime.
// Set by init() in dispatch_*.go files.
var currentKernel KernelLevel

// CurrentKernel returns the row-product kernel selected for this CPU.
func CurrentKernel() KernelLevel {
	return currentKernel
}

// SIMDLevel returns the vector instruction set used for the row-sum column
// updates.
func SIMDLevel() hwy.DispatchLevel {
	return hwy.CurrentLevel()
}

// NoFMAEnv checks if the QLAB_NO_FMA environment variable is set.
// When set, the scalar kernel is used regardless of CPU capabilities.
func NoFMAEnv() bool {
	val := os.Getenv("QLAB_NO_FMA")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// productScalar multiplies the complex numbers re[i]+i·im[i].
func productScalar(re, im []float64) complex128 {
	p := complex(1, 0)
	im = im[:len(re)]
	for i, r := range re {
		p *= complex(r, im[i])
	}
	return p
}

func productFMA(re, im []float64) complex128 {
	pr, pi := 1.0, 0.0
	im = im[:len(re)]
	for i, xr := range re {
		xi := im[i]
		pr, pi = math.FMA(pr, xr, -(pi * xi)), math.FMA(pr, xi, pi*xr)
	}
	return complex(pr, pi)
}
