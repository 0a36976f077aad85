// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reach

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for reachability propagation.
var (
	// computeDuration tracks the latency of Compute() calls.
	computeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reach_compute_duration_seconds",
		Help:    "Histogram of reachability computation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// computePasses tracks how many fixpoint passes a computation needed.
	computePasses = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reach_compute_passes",
		Help:    "Histogram of fixpoint passes per reachability computation",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	// computations counts computations by outcome.
	computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reach_computations_total",
		Help: "Total number of reachability computations",
	}, []string{"outcome"})

	// evaluationFaults counts per-location and per-exit faults by code.
	evaluationFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reach_evaluation_faults_total",
		Help: "Total number of rule evaluation faults during propagation",
	}, []string{"kind", "code"})
)

// Computation outcomes.
const (
	outcomeOK    = "ok"
	outcomeLimit = "limit"
	outcomeError = "error"
)

func recordCompute(duration time.Duration, passes int, outcome string) {
	computeDuration.Observe(duration.Seconds())
	computePasses.Observe(float64(passes))
	computations.WithLabelValues(outcome).Inc()
}

func recordFault(kind, code string) {
	if code == "" {
		code = "unknown"
	}
	evaluationFaults.WithLabelValues(kind, code).Inc()
}
