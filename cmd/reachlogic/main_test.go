// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/replay"
	"github.com/holomush/reachlogic/pkg/errutil"
)

const (
	dataset  = "testdata/dataset.yaml"
	snapFile = "testdata/snapshot.json"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, _, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"evaluate", "reach", "verify", "schema"} {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := run(t, "reach", "-d", dataset, "--log-format=xml")
	errutil.AssertErrorCode(t, err, "INVALID_CONFIG")
}

func reachJSON(t *testing.T, args ...string) reachReport {
	t.Helper()
	out, _, err := run(t, append([]string{"reach", "--json"}, args...)...)
	require.NoError(t, err)
	var report reachReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	return report
}

func states(report reachReport) map[string]string {
	m := make(map[string]string, len(report.Locations))
	for _, row := range report.Locations {
		m[row.Name] = row.State
	}
	return m
}

func TestReach_JSON(t *testing.T) {
	report := reachJSON(t, "-d", dataset, "-s", snapFile)

	assert.Equal(t, "Test Game", report.Game)
	assert.Equal(t, uint64(4), report.Generation)
	assert.Equal(t, snapshot.RegionReachable, report.Regions["Menu"])
	assert.Equal(t, snapshot.RegionReachable, report.Regions["Zone"])
	assert.Equal(t, map[string]string{
		"Chest":    stateAccessible,
		"Pedestal": stateInaccessible,
		"Shop":     stateChecked,
	}, states(report))
}

func TestReach_EmptySnapshot(t *testing.T) {
	report := reachJSON(t, "-d", dataset)
	assert.Equal(t, snapshot.RegionUnreachable, report.Regions["Zone"])
	assert.Equal(t, stateAccessible, states(report)["Shop"])
}

func TestReach_Filter(t *testing.T) {
	report := reachJSON(t, "-d", dataset, "-s", snapFile, "--filter", "C*", "--filter", "Zone")
	assert.Equal(t, map[string]string{"Chest": stateAccessible}, states(report))
	assert.Equal(t, map[string]snapshot.RegionState{"Zone": snapshot.RegionReachable}, report.Regions)
}

func TestReach_InvalidFilter(t *testing.T) {
	_, _, err := run(t, "reach", "-d", dataset, "--filter", "[oops")
	errutil.AssertErrorCode(t, err, "INVALID_FILTER")
}

func TestReach_FaultsRenderAsUnknown(t *testing.T) {
	report := reachJSON(t, "-d", "testdata/faulty.yaml")
	require.Len(t, report.Locations, 2)
	assert.Equal(t, locationRow{Name: "Fine", State: stateAccessible}, report.Locations[1])
	assert.Equal(t, "Broken", report.Locations[0].Name)
	assert.Equal(t, stateUnknown, report.Locations[0].State)
	assert.Equal(t, eval.CodeUnknownHelper, report.Locations[0].Code)

	out, _, err := run(t, "reach", "-d", "testdata/faulty.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "Broken (UNKNOWN_HELPER)")
}

func TestReach_LenientHelpers(t *testing.T) {
	report := reachJSON(t, "-d", "testdata/faulty.yaml", "--lenient-helpers")
	assert.Equal(t, stateInaccessible, states(report)["Broken"])
}

func TestReach_Text(t *testing.T) {
	out, _, err := run(t, "reach", "-d", dataset, "-s", snapFile)
	require.NoError(t, err)

	assert.Contains(t, out, "Test Game")
	assert.Contains(t, out, "generation 4")
	for _, line := range []string{"reachable", "Zone", "accessible", "Chest", "checked", "Shop"} {
		assert.Contains(t, out, line)
	}
}

func TestReach_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reachlogic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  start_regions: [Zone]\n  workers: 2\n"), 0o600))

	report := reachJSON(t, "--config", path, "-d", dataset)
	assert.Equal(t, snapshot.RegionUnreachable, report.Regions["Menu"])
	assert.Equal(t, snapshot.RegionReachable, report.Regions["Zone"])
}

func TestReach_GameMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"game":"Other Game"}`), 0o600))
	_, _, err := run(t, "reach", "-d", dataset, "-s", path)
	errutil.AssertErrorCode(t, err, "GAME_MISMATCH")
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"rule", []string{`has("Key") and count("Key") >= 1`}, "true"},
		{"number", []string{`count("Key")`}, "1"},
		{"undefined", []string{`settings.missing`}, "undefined"},
		{"can_reach", []string{`can_reach("Zone")`}, "true"},
		{"location accessibility", []string{"--location", "Chest"}, "true"},
		{"rule fails without a sword", []string{"--location", "Pedestal"}, "false"},
		{"bound location", []string{"--location", "Chest", "location.parent_region"}, "Zone"},
		{"cache only", []string{"--propagate=false", `can_reach("Zone")`}, "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"evaluate", "-d", dataset, "-s", snapFile}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestEvaluate_JSON(t *testing.T) {
	out, _, err := run(t, "evaluate", "-d", dataset, "--json", `count("Key")`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": 0}`, out)
}

func TestEvaluate_Errors(t *testing.T) {
	_, _, err := run(t, "evaluate", "-d", dataset)
	errutil.AssertErrorCode(t, err, eval.CodeMalformedRule)

	_, _, err = run(t, "evaluate", "-d", dataset, "-l", "Nowhere", "true")
	errutil.AssertErrorCode(t, err, eval.CodeMissingStaticData)

	_, _, err = run(t, "evaluate", "-d", dataset, `count("Key") >= "x"`)
	errutil.AssertErrorCode(t, err, eval.CodeTypeMismatch)

	_, _, err = run(t, "evaluate", "-s", snapFile, "true")
	require.Error(t, err, "--data is required")
}

func TestVerify(t *testing.T) {
	out, _, err := run(t, "verify", "-d", dataset, "-p", "testdata/playthrough.jsonl")
	require.NoError(t, err)
	assert.Contains(t, out, "0 mismatched steps")
	assert.Contains(t, out, "skipped")
}

func TestVerify_Mismatch(t *testing.T) {
	out, _, err := run(t, "verify", "-d", dataset, "-p", "testdata/mismatch.jsonl",
		"--json", "--run-id", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	errutil.AssertErrorCode(t, err, CodeReplayMismatch)

	var report replay.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", report.RunID.String())
	assert.Equal(t, 2, report.Mismatches)
	assert.Equal(t, []string{"Shop"}, report.Steps[1].Extra)
	assert.Equal(t, []string{"Pedestal"}, report.Steps[2].Missing)
}

func TestVerify_Text(t *testing.T) {
	out, _, err := run(t, "verify", "-d", dataset, "-p", "testdata/mismatch.jsonl")
	require.Error(t, err)
	assert.Contains(t, out, "mismatch")
	assert.Contains(t, out, "+ Shop")
	assert.Contains(t, out, "- Pedestal")
	assert.Contains(t, out, "2 mismatched steps")
}

func TestVerify_BadRunID(t *testing.T) {
	_, _, err := run(t, "verify", "-d", dataset, "-p", "testdata/playthrough.jsonl", "--run-id", "nope")
	errutil.AssertErrorCode(t, err, "INVALID_RUN_ID")
}

func TestSchema(t *testing.T) {
	out, _, err := run(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Contains(t, out, "connected_region")

	path := filepath.Join(t.TempDir(), "schemas", "dataset.schema.json")
	msg, _, err := run(t, "schema", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, msg, "Generated")
	assert.FileExists(t, path)
}

func TestRootCommand_MetricsFlag(t *testing.T) {
	_, stderr, err := run(t, "reach", "-d", dataset, "--json", "--metrics", "--log-level=error")
	require.NoError(t, err)
	assert.Contains(t, stderr, "reach_computations_total")
	assert.NotContains(t, stderr, "go_goroutines")
}
