// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetrics_FiltersByPrefix(t *testing.T) {
	reg := prometheus.NewRegistry()
	passes := prometheus.NewCounter(prometheus.CounterOpts{Name: "reach_test_passes_total", Help: "passes"})
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total", Help: "other"})
	reg.MustRegister(passes, other)
	passes.Add(3)

	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, reg, EngineMetricPrefix))

	out := buf.String()
	assert.Contains(t, out, "# TYPE reach_test_passes_total counter")
	assert.Contains(t, out, "reach_test_passes_total 3")
	assert.NotContains(t, out, "other_total")

	buf.Reset()
	require.NoError(t, WriteMetrics(&buf, reg, ""))
	assert.Contains(t, buf.String(), "other_total 0")
}
