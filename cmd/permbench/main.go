// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

// Command permbench computes permanents of generated matrices and reports the
// values and timings. It is meant for sizing WithWorkers/WithBatchConcurrency
// on a given machine.
//
// Usage:
//
//	permbench -n 20 --kind random --count 4 --batch 2
//	permbench -n 24 --kind ones --workers 16 -v
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/qlab-go/qlab/permanent"
)

var kinds = []string{"identity", "ones", "fourier", "random"}

type options struct {
	n        int
	count    int
	kind     string
	seed     uint64
	workers  int
	batch    int
	pool     int
	maxSize  int
	failFast bool
	timeout  time.Duration
	verbose  bool
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the root command with SIGINT cancelling its context. It keeps
// the deferred cleanup out of main so os.Exit never skips it.
func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "permbench",
		Short:         "Compute matrix permanents and report timings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), o)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&o.n, "size", "n", 12, "matrix size n")
	f.IntVar(&o.count, "count", 1, "number of matrices to evaluate as one batch")
	f.StringVar(&o.kind, "kind", "random", "matrix kind ("+strings.Join(kinds, ",")+")")
	f.Uint64Var(&o.seed, "seed", 1, "seed for --kind random")
	f.IntVar(&o.workers, "workers", 0, "shards per matrix (default: pool size / batch)")
	f.IntVar(&o.batch, "batch", 1, "matrices evaluated concurrently")
	f.IntVar(&o.pool, "pool", runtime.GOMAXPROCS(0), "total execution units")
	f.IntVar(&o.maxSize, "max-size", permanent.DefaultMaxSize, "largest accepted n")
	f.BoolVar(&o.failFast, "fail-fast", false, "abort the batch on the first error")
	f.DurationVar(&o.timeout, "timeout", 0, "cancel the batch after this long (0 = never)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging to stderr")
	return cmd
}

func run(ctx context.Context, stdout, stderr io.Writer, o *options) error {
	if !lo.Contains(kinds, o.kind) {
		return fmt.Errorf("unknown kind %q (want one of %s)", o.kind, strings.Join(kinds, ","))
	}
	if o.count < 1 {
		return fmt.Errorf("count must be positive, got %d", o.count)
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := []permanent.Option{
		permanent.WithPoolSize(o.pool),
		permanent.WithBatchConcurrency(o.batch),
		permanent.WithMaxSize(o.maxSize),
		permanent.WithFailFast(o.failFast),
		permanent.WithLogger(logger),
	}
	if o.workers > 0 {
		opts = append(opts, permanent.WithWorkers(o.workers))
	}
	eng, err := permanent.New(opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	ms := lo.Times(o.count, func(i int) *permanent.Matrix {
		return generate(o.kind, o.n, o.seed+uint64(i))
	})

	cfg := eng.Config()
	fmt.Fprintf(stdout, "kind=%s n=%d count=%d kernel=%s simd=%s pool=%d workers=%d batch=%d\n",
		o.kind, o.n, o.count, cfg.Kernel, permanent.SIMDLevel(), cfg.PoolSize, cfg.Workers, cfg.BatchConcurrency)

	start := time.Now()
	out, err := eng.Batch(ctx, ms)
	elapsed := time.Since(start)

	for i, r := range out {
		if r.Err != nil {
			fmt.Fprintf(stdout, "%3d  error: %v\n", i, r.Err)
			continue
		}
		p := cmplx.Abs(r.Value)
		fmt.Fprintf(stdout, "%3d  perm=%.12g  |perm|^2=%.6g  shards=%d workers=%d cond=%.2g",
			i, r.Value, p*p, r.Shards, r.Workers, r.Condition)
		if r.Warning != nil {
			fmt.Fprint(stdout, "  (unstable)")
		}
		fmt.Fprintln(stdout)
	}

	terms := float64(o.count) * math.Ldexp(1, o.n)
	fmt.Fprintf(stdout, "elapsed %s (%.3g terms/s)\n", elapsed.Round(time.Microsecond), terms/elapsed.Seconds())
	return err
}

func generate(kind string, n int, seed uint64) *permanent.Matrix {
	switch kind {
	case "identity":
		return permanent.Identity(n)
	case "ones":
		return permanent.Ones(n)
	case "fourier":
		return permanent.Fourier(n)
	}

	rng := rand.New(rand.NewPCG(seed, seed*0x9e3779b97f4a7c15+1))
	scale := 1 / math.Sqrt(float64(2*n))
	m, err := permanent.FromRows(lo.Times(n, func(int) []complex128 {
		return lo.Times(n, func(int) complex128 {
			return complex(rng.NormFloat64()*scale, rng.NormFloat64()*scale)
		})
	}))
	if err != nil {
		// n < 1; let the engine report the shape.
		return nil
	}
	return m
}
