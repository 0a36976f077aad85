// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionState_String(t *testing.T) {
	assert.Equal(t, "unknown", RegionUnknown.String())
	assert.Equal(t, "reachable", RegionReachable.String())
	assert.Equal(t, "unknown(9)", RegionState(9).String())
}

func TestRegionState_Reached(t *testing.T) {
	assert.False(t, RegionUnknown.Reached())
	assert.False(t, RegionUnreachable.Reached())
	assert.True(t, RegionReachable.Reached())
	assert.True(t, RegionChecked.Reached())
}

func TestRegionState_Text(t *testing.T) {
	var s RegionState
	require.NoError(t, s.UnmarshalText([]byte("Checked")))
	assert.Equal(t, RegionChecked, s)
	assert.Error(t, s.UnmarshalText([]byte("maybe")))
}

func TestParse(t *testing.T) {
	input := `{
	  "game": "A Link to the Past",
	  "player": {"slot": 2, "name": "Link"},
	  "inventory": {"Bow": 1},
	  "flags": ["agahnim", "checked:Sahasrahla"],
	  "checked_locations": ["Link's House"],
	  "settings": {"mode": "open"},
	  "region_reachability": {"Menu": "reachable", "Dark World": "unreachable"}
	}`
	s, err := Parse([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Player.Slot)
	assert.Equal(t, 1, s.Count("Bow"))
	assert.Equal(t, 0, s.Count("Hookshot"))
	assert.True(t, s.HasFlag("agahnim"))
	assert.True(t, s.IsChecked("Link's House"))
	assert.True(t, s.IsChecked("Sahasrahla"))
	assert.False(t, s.IsChecked("Uncle"))

	v, ok := s.Setting("mode")
	require.True(t, ok)
	assert.Equal(t, "open", v)

	assert.Equal(t, RegionReachable, s.RegionState("Menu"))
	assert.Equal(t, RegionUnreachable, s.RegionState("Dark World"))
	assert.Equal(t, RegionUnknown, s.RegionState("Hyrule Castle"))
}

func TestParse_ClampsNegativeCounts(t *testing.T) {
	s, err := Parse([]byte(`{"game": "g", "inventory": {"Arrow": -4, "Bow": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count("Arrow"))
	assert.Equal(t, 2, s.Count("Bow"))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"region_reachability": {"Menu": "sideways"}}`))
	require.Error(t, err)
}

func TestMarshal_SetsAreSortedLists(t *testing.T) {
	s := New("g", 1).WithFlag("b").WithFlag("a")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"flags":["a","b"]`)
}

func TestWith_CopyOnWrite(t *testing.T) {
	base := New("g", 1)
	next := base.WithItem("Key", 2).WithChecked("Chest").WithSetting("hard", true)

	assert.Equal(t, 0, base.Count("Key"))
	assert.False(t, base.IsChecked("Chest"))
	assert.Empty(t, base.Settings)

	assert.Equal(t, 2, next.Count("Key"))
	assert.True(t, next.IsChecked("Chest"))
	assert.Equal(t, uint64(3), next.Generation)

	assert.Equal(t, 0, next.WithItem("Key", -5).Count("Key"))
}

func TestClone_FromZeroValue(t *testing.T) {
	var s Snapshot
	c := s.Clone()
	require.NotNil(t, c.Inventory)
	require.NotNil(t, c.Flags)
	c.Inventory["x"] = 1
	assert.Equal(t, uint64(1), c.Generation)
}
