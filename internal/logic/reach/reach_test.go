// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reach

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/rule"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
	"github.com/holomush/reachlogic/internal/logic/view"
	"github.com/holomush/reachlogic/pkg/errutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func zoneData(t *testing.T) *static.Data {
	t.Helper()
	d := &static.Data{
		Game: "Test Game",
		Items: map[string]*static.Item{
			"Fighter Sword": {Groups: []string{"Swords"}},
			"Master Sword":  {Groups: []string{"Swords"}},
		},
		Locations: map[string]*static.Location{
			"Chest":    {Region: "Zone"},
			"Pedestal": {Region: "Menu", AccessRule: rule.MustParse(`has_group("Swords")`)},
			"Shop":     {Region: "Kakariko"},
			"Attic":    {Region: "Kakariko", AccessRule: rule.MustParse(`has("Hookshot")`)},
		},
		Regions: map[string]*static.Region{
			"Menu": {Exits: []*static.Exit{
				{Name: "To Zone", ConnectedRegion: "Zone", AccessRule: rule.MustParse(`has("Key")`)},
				{Name: "To Kakariko", ConnectedRegion: "Kakariko"},
			}},
			"Zone":     {},
			"Kakariko": {},
		},
	}
	d.Index()
	require.NoError(t, d.Validate())
	return d
}

func compute(t *testing.T, s *snapshot.Snapshot, d *static.Data, opts ...Option) *Result {
	t.Helper()
	res, err := Compute(context.Background(), s, d, append([]Option{WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return res
}

func TestCompute_KeyUnlocksZone(t *testing.T) {
	d := zoneData(t)

	res := compute(t, snapshot.New("Test Game", 1), d)
	assert.Equal(t, snapshot.RegionReachable, res.Regions["Menu"])
	assert.Equal(t, snapshot.RegionUnreachable, res.Regions["Zone"])
	assert.False(t, res.Locations["Chest"])
	assert.False(t, res.Exits["Menu/To Zone"])
	assert.True(t, res.Exits["Menu/To Kakariko"])
	assert.Empty(t, res.Faults)

	res = compute(t, snapshot.New("Test Game", 1).WithItem("Key", 1), d)
	assert.Equal(t, snapshot.RegionReachable, res.Regions["Zone"])
	assert.True(t, res.Locations["Chest"])
	assert.True(t, res.Exits["Menu/To Zone"])
	assert.Equal(t, []string{"Chest", "Shop"}, res.Accessible())
}

func TestCompute_HasGroup(t *testing.T) {
	d := zoneData(t)

	res := compute(t, snapshot.New("Test Game", 1), d)
	assert.False(t, res.Locations["Pedestal"])

	res = compute(t, snapshot.New("Test Game", 1).WithItem("Master Sword", 1), d)
	assert.True(t, res.Locations["Pedestal"])
}

func TestCompute_CheckedLocations(t *testing.T) {
	d := zoneData(t)
	s := snapshot.New("Test Game", 1).WithItem("Hookshot", 1).WithChecked("Shop")

	res := compute(t, s, d)
	assert.False(t, res.Locations["Shop"], "checked locations are not accessible")
	assert.True(t, res.Locations["Attic"])
	assert.Equal(t, snapshot.RegionReachable, res.Regions["Kakariko"])

	res = compute(t, s.WithChecked("Attic"), d)
	assert.Equal(t, snapshot.RegionChecked, res.Regions["Kakariko"])
	assert.Equal(t, snapshot.RegionReachable, res.Regions["Menu"], "regions with unchecked locations stay reachable")

	cached := snapshot.New("Test Game", 1)
	cached.RegionReachability["Menu"] = snapshot.RegionChecked
	res = compute(t, cached, d)
	assert.Equal(t, snapshot.RegionChecked, res.Regions["Menu"])
}

func TestCompute_IgnoresStaleRegionCache(t *testing.T) {
	d := zoneData(t)
	s := snapshot.New("Test Game", 1)
	s.RegionReachability["Zone"] = snapshot.RegionReachable

	res := compute(t, s, d)
	assert.Equal(t, snapshot.RegionUnreachable, res.Regions["Zone"])
	assert.False(t, res.Locations["Chest"])
}

func TestCompute_CanReachDuringPropagation(t *testing.T) {
	d := &static.Data{
		Game: "Test Game",
		Locations: map[string]*static.Location{
			"Gate Switch": {Region: "Courtyard"},
		},
		Regions: map[string]*static.Region{
			"Menu": {Exits: []*static.Exit{
				{Name: "To Courtyard", ConnectedRegion: "Courtyard"},
				{Name: "To Keep", ConnectedRegion: "Keep", AccessRule: rule.MustParse(`can_reach("Courtyard")`)},
			}},
			"Courtyard": {},
			"Keep": {Exits: []*static.Exit{
				{Name: "To Tower", ConnectedRegion: "Tower", AccessRule: rule.MustParse(`can_reach("Gate Switch", "Location")`)},
			}},
			"Tower": {},
		},
	}
	d.Index()
	require.NoError(t, d.Validate())

	res := compute(t, snapshot.New("Test Game", 1), d)
	for _, name := range []string{"Menu", "Courtyard", "Keep", "Tower"} {
		assert.Equal(t, snapshot.RegionReachable, res.Regions[name], name)
	}
	assert.Equal(t, 4, res.Passes)
}

func chainData(t *testing.T, n int) *static.Data {
	t.Helper()
	names := []string{"Menu", "R1", "R2", "R3", "R4", "R5"}[:n]
	d := &static.Data{Game: "Chain", Regions: map[string]*static.Region{}}
	for i, name := range names {
		r := &static.Region{}
		if i+1 < len(names) {
			r.Exits = []*static.Exit{{Name: name + " -> " + names[i+1], ConnectedRegion: names[i+1]}}
		}
		d.Regions[name] = r
	}
	d.Index()
	require.NoError(t, d.Validate())
	return d
}

func TestCompute_DuplicateExitNames(t *testing.T) {
	d := &static.Data{
		Game: "Test Game",
		Locations: map[string]*static.Location{
			"Porch": {Region: "A"},
		},
		Regions: map[string]*static.Region{
			"Menu": {Exits: []*static.Exit{{Name: "Door", ConnectedRegion: "A"}}},
			"B":    {Exits: []*static.Exit{{Name: "Door", ConnectedRegion: "C", AccessRule: rule.MustParse(`has("Key")`)}}},
			"A":    {},
			"C":    {},
		},
	}
	d.Index()
	require.NoError(t, d.Validate())

	// Map iteration order must not decide which "Door" is evaluated.
	for range 20 {
		res := compute(t, snapshot.New("Test Game", 1), d)
		require.Equal(t, snapshot.RegionReachable, res.Regions["A"])
		assert.Equal(t, snapshot.RegionUnreachable, res.Regions["B"])
		assert.Equal(t, snapshot.RegionUnreachable, res.Regions["C"])
		assert.True(t, res.Locations["Porch"])
		assert.Equal(t, map[string]bool{"Menu/Door": true, "B/Door": false}, res.Exits)
		assert.Empty(t, res.Faults)
	}
}

func TestCompute_PassCap(t *testing.T) {
	d := chainData(t, 4)

	res := compute(t, snapshot.New("Chain", 1), d, WithMaxPasses(4))
	assert.Equal(t, 4, res.Passes)
	assert.Equal(t, snapshot.RegionReachable, res.Regions["R3"])

	_, err := Compute(context.Background(), snapshot.New("Chain", 1), d, WithMaxPasses(3), WithLogger(quiet))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodePropagationLimit)
	errutil.AssertErrorContext(t, err, "max_passes", 3)
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Compute(ctx, snapshot.New("Chain", 1), chainData(t, 3), WithLogger(quiet))
	assert.Nil(t, res)
	errutil.AssertErrorCode(t, err, CodePropagationLimit)
}

func TestCompute_UnknownStartRegion(t *testing.T) {
	_, err := Compute(context.Background(), snapshot.New("Chain", 1), chainData(t, 2),
		WithStartRegions("Nowhere"), WithLogger(quiet))
	errutil.AssertErrorCode(t, err, eval.CodeMissingStaticData)
}

func TestCompute_StartRegions(t *testing.T) {
	res := compute(t, snapshot.New("Chain", 1), chainData(t, 4), WithStartRegions("R2"))
	assert.Equal(t, snapshot.RegionUnreachable, res.Regions["Menu"])
	assert.Equal(t, snapshot.RegionUnreachable, res.Regions["R1"])
	assert.Equal(t, snapshot.RegionReachable, res.Regions["R2"])
	assert.Equal(t, snapshot.RegionReachable, res.Regions["R3"])
}

func TestCompute_FaultsAreUnknown(t *testing.T) {
	d := &static.Data{
		Game: "Test Game",
		Locations: map[string]*static.Location{
			"Fine":   {Region: "Menu"},
			"Broken": {Region: "Menu", AccessRule: rule.MustParse(`no_such_helper()`)},
			"Odd":    {Region: "Menu", AccessRule: rule.MustParse(`count("Arrow") >= "many"`)},
		},
		Regions: map[string]*static.Region{
			"Menu": {Exits: []*static.Exit{
				{Name: "Bad Door", ConnectedRegion: "Vault", AccessRule: rule.MustParse(`no_such_helper()`)},
			}},
			"Vault": {},
		},
	}
	d.Index()
	require.NoError(t, d.Validate())

	before := testutil.ToFloat64(evaluationFaults.WithLabelValues(FaultLocation, eval.CodeUnknownHelper))
	res := compute(t, snapshot.New("Test Game", 1), d)

	assert.True(t, res.Locations["Fine"])
	assert.NotContains(t, res.Locations, "Broken")
	assert.NotContains(t, res.Locations, "Odd")
	assert.Equal(t, []string{"Broken", "Odd"}, res.Unknown)
	assert.Equal(t, snapshot.RegionUnreachable, res.Regions["Vault"])
	assert.NotContains(t, res.Exits, "Menu/Bad Door")

	codes := map[string]string{}
	for _, f := range res.Faults {
		codes[f.Kind+":"+f.Name] = f.Code()
	}
	assert.Equal(t, map[string]string{
		"location:Broken":    eval.CodeUnknownHelper,
		"location:Odd":       eval.CodeTypeMismatch,
		"exit:Menu/Bad Door": eval.CodeUnknownHelper,
	}, codes)
	assert.Equal(t, before+1, testutil.ToFloat64(evaluationFaults.WithLabelValues(FaultLocation, eval.CodeUnknownHelper)))
}

func TestCompute_LenientHelpers(t *testing.T) {
	d := &static.Data{
		Game: "Test Game",
		Locations: map[string]*static.Location{
			"Broken": {Region: "Menu", AccessRule: rule.MustParse(`no_such_helper() or has("Key")`)},
		},
		Regions: map[string]*static.Region{"Menu": {}},
	}
	d.Index()

	e := eval.New(eval.WithLenientHelpers(true), eval.WithLogger(quiet))
	res := compute(t, snapshot.New("Test Game", 1).WithItem("Key", 1), d, WithEvaluator(e))
	assert.True(t, res.Locations["Broken"])
	assert.Empty(t, res.Faults)
}

func TestCompute_Workers(t *testing.T) {
	d := zoneData(t)
	s := snapshot.New("Test Game", 1).WithItem("Key", 1).WithItem("Fighter Sword", 1)

	serial := compute(t, s, d)
	parallel := compute(t, s, d, WithWorkers(4))
	assert.Equal(t, serial.Locations, parallel.Locations)
	assert.Equal(t, serial.Regions, parallel.Regions)
	assert.Equal(t, serial.Generation, parallel.Generation)
}

func TestCompute_Monotonic(t *testing.T) {
	d := zoneData(t)
	steps := []func(*snapshot.Snapshot) *snapshot.Snapshot{
		func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithItem("Hookshot", 1) },
		func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithItem("Key", 1) },
		func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithItem("Fighter Sword", 1) },
		func(s *snapshot.Snapshot) *snapshot.Snapshot { return s.WithItem("Key", 3) },
	}

	s := snapshot.New("Test Game", 1)
	prev := compute(t, s, d)
	for i, step := range steps {
		s = step(s)
		next := compute(t, s, d)
		for name, ok := range prev.Locations {
			if ok {
				assert.True(t, next.Locations[name], "step %d lost location %s", i, name)
			}
		}
		for name, state := range prev.Regions {
			if state.Reached() {
				assert.True(t, next.Regions[name].Reached(), "step %d lost region %s", i, name)
			}
		}
		prev = next
	}
	assert.Len(t, prev.Accessible(), len(d.Locations))
}

func TestCompute_Idempotent(t *testing.T) {
	d := zoneData(t)
	s := snapshot.New("Test Game", 7).WithItem("Key", 1)

	first := compute(t, s, d)
	second := compute(t, s, d)
	assert.Equal(t, first, second)
	assert.Equal(t, s.Generation, first.Generation)
}

func TestResult_Annotate(t *testing.T) {
	d := zoneData(t)
	s := snapshot.New("Test Game", 1).WithItem("Key", 1)

	res := compute(t, s, d)
	annotated := res.Annotate(s)
	assert.Equal(t, s.Generation, annotated.Generation)
	assert.Equal(t, snapshot.RegionReachable, annotated.RegionState("Zone"))
	assert.Equal(t, snapshot.RegionUnknown, s.RegionState("Zone"))
}

func TestCompute_Metrics(t *testing.T) {
	d := chainData(t, 3)
	ok := testutil.ToFloat64(computations.WithLabelValues(outcomeOK))
	limit := testutil.ToFloat64(computations.WithLabelValues(outcomeLimit))

	compute(t, snapshot.New("Chain", 1), d)
	_, err := Compute(context.Background(), snapshot.New("Chain", 1), d, WithMaxPasses(1), WithLogger(quiet))
	require.Error(t, err)

	assert.Equal(t, ok+1, testutil.ToFloat64(computations.WithLabelValues(outcomeOK)))
	assert.Equal(t, limit+1, testutil.ToFloat64(computations.WithLabelValues(outcomeLimit)))
}

func TestEvaluateLocations(t *testing.T) {
	d := zoneData(t)
	s := snapshot.New("Test Game", 1).WithItem("Key", 1)
	res := compute(t, s, d)
	v := view.Build(s, d, view.WithRegionStates(res.Regions), view.WithLogger(quiet))

	names := d.LocationNames()
	for _, workers := range []int{0, 1, 3} {
		out, err := EvaluateLocations(context.Background(), v, names, workers)
		require.NoError(t, err)
		require.Len(t, out, len(names))
		for i, name := range names {
			require.NoError(t, out[i].Err, name)
			assert.Equal(t, res.Locations[name], out[i].Accessible == eval.True, name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EvaluateLocations(ctx, v, names, 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = EvaluateLocations(ctx, v, names, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilter(t *testing.T) {
	f, err := NewFilter("Hyrule Castle*", "*Chest")
	require.NoError(t, err)

	assert.True(t, f.Match("Hyrule Castle - Zelda's Cell"))
	assert.True(t, f.Match("Sahasrahla's Hut - Chest"))
	assert.False(t, f.Match("Link's House"))
	assert.Equal(t, []string{"Big Chest", "Hyrule Castle"}, f.Names([]string{"Big Chest", "Bottle Merchant", "Hyrule Castle"}))

	all, err := NewFilter()
	require.NoError(t, err)
	assert.True(t, all.Match("anything"))

	var none *Filter
	assert.True(t, none.Match("anything"))

	_, err = NewFilter("[unclosed")
	errutil.AssertErrorCode(t, err, "INVALID_FILTER")
}
