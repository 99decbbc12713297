// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

//go:build !amd64 && !arm64

package permanent

func init() {
	currentKernel = KernelScalar
}
