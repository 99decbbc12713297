// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

//go:build amd64

package permanent

import "golang.org/x/sys/cpu"

func init() {
	if NoFMAEnv() {
		currentKernel = KernelScalar
		return
	}

	// math.FMA is only intrinsified when the CPU has FMA3; otherwise it
	// falls back to a slow software path.
	if cpu.X86.HasFMA {
		currentKernel = KernelFMA
	} else {
		currentKernel = KernelScalar
	}
}
