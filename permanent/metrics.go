// Copyright 2026 The qlab Authors. SPDX-License-Identifier: Apache-2.0

package permanent

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are always live; they are only exported when the engine was given
// a Registerer.
type metrics struct {
	computations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	slotRetries  prometheus.Counter
	warnings     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		computations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qlab_permanent_computations_total",
			Help: "Permanent computations by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qlab_permanent_duration_seconds",
			Help:    "Wall-clock time of one permanent computation by matrix size.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 14), // 10µs to ~11min
		}, []string{"n"}),
		slotRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "qlab_permanent_slot_retries_total",
			Help: "Reservations retried with a reduced worker count.",
		}),
		warnings: f.NewCounter(prometheus.CounterOpts{
			Name: "qlab_permanent_instability_warnings_total",
			Help: "Results flagged with a numeric instability warning.",
		}),
	}
}

func (m *metrics) observe(n int, seconds float64, outcome string) {
	m.computations.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.duration.WithLabelValues(strconv.Itoa(n)).Observe(seconds)
	}
}

const (
	outcomeOK        = "ok"
	outcomeCancelled = "cancelled"
	outcomeRejected  = "rejected"
	outcomeExhausted = "exhausted"
)
