// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"context"
	"fmt"
	"runtime"
	"testing"
)

func BenchmarkPermanent(b *testing.B) {
	procs := runtime.GOMAXPROCS(0)
	for _, n := range []int{8, 12, 16, 20} {
		m := randomMatrix(b, uint64(n), n)
		for _, w := range []int{1, procs} {
			b.Run(fmt.Sprintf("n=%d/workers=%d", n, w), func(b *testing.B) {
				e := newTestEngine(b, WithPoolSize(procs), WithWorkers(w))
				ctx := context.Background()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := e.Permanent(ctx, m); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkRowProduct(b *testing.B) {
	m := randomMatrix(b, 1, 24)
	re, im := splitRow(m.Row(0))
	b.Run("scalar", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = productScalar(re, im)
		}
	})
	b.Run("fma", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = productFMA(re, im)
		}
	})
}

func BenchmarkRunShard(b *testing.B) {
	const n = 16
	m := randomMatrix(b, 3, n)
	re, im := m.columns()
	acc := newRowSums(re, im, n, CurrentKernel())
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runShard(ctx, Shard{0, 1 << n}, acc); err != nil {
			b.Fatal(err)
		}
	}
}
