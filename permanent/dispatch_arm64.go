// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

//go:build arm64

package permanent

import "golang.org/x/sys/cpu"

func init() {
	if NoFMAEnv() {
		currentKernel = KernelScalar
		return
	}

	// Scalar FMADD is part of the ARMv8-A base; ASIMD is checked for
	// consistency with the floating-point feature set.
	if cpu.ARM64.HasASIMD {
		currentKernel = KernelFMA
	} else {
		currentKernel = KernelScalar
	}
}
