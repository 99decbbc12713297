// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

// Package permanent computes exact permanents of complex square matrices.
// The permanent of a linear-optics transfer matrix gives multi-photon
// interference amplitudes: Hong-Ou-Mandel dips, boson-sampling output
// probabilities and the like.
//
// # Algorithm
//
// Ryser's formula
//
//	perm(A) = (-1)^n Σ_{S ⊆ {1..n}} (-1)^|S| Π_i Σ_{j∈S} a_ij
//
// is evaluated over the 2^n column subsets in reflected Gray-code order, so
// consecutive subsets differ by one column and the row sums are updated by
// adding or subtracting that column: O(2^n·n) work instead of O(n!·n).
//
// The index space [0, 2^n) is split into contiguous shards, one per worker.
// Each shard seeds its row sums from its first subset, sums its terms in
// enumeration order with compensated (Neumaier) summation, and writes the
// result to its own slot. The slots are added in shard order and the (-1)^n
// factor is applied once.
//
// # Determinism
//
// The shard plan depends only on n and Workers, so the same configuration
// gives bit-identical results. Changing Workers regroups the sum and may
// change the last few bits; results agree to a relative error far below
// 1e-9 for well-conditioned inputs.
//
// # Concurrency
//
// An Engine owns a fixed pool of PoolSize execution units (GOMAXPROCS by
// default). Each matrix reserves Workers of them; Batch runs up to
// BatchConcurrency matrices at once, and New rejects configurations where
// BatchConcurrency × Workers exceeds PoolSize.
//
// # Example Usage
//
//	eng, err := permanent.New(permanent.WithMaxSize(24))
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	res, err := eng.Permanent(ctx, permanent.Fourier(8))
//	if err != nil {
//	    return err
//	}
//	if res.Warning != nil {
//	    log.Print(res.Warning)
//	}
//	fmt.Println(res.Value)
package permanent
