// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability exposes the process's Prometheus metrics.
package observability

import (
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/oops"
)

// EngineMetricPrefix selects the reachability engine's own metrics.
const EngineMetricPrefix = "reach_"

// WriteMetrics writes every metric family from g whose name starts with
// prefix in the Prometheus text exposition format. An empty prefix writes
// everything.
func WriteMetrics(w io.Writer, g prometheus.Gatherer, prefix string) error {
	families, err := g.Gather()
	if err != nil {
		return oops.In("observability").Wrapf(err, "gathering metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return oops.In("observability").With("metric", mf.GetName()).Wrapf(err, "encoding metrics")
		}
	}
	return nil
}
