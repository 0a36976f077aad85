// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package snapshot holds the dynamic game state evaluated by the engine.
// A Snapshot is never mutated once handed to an evaluation batch; the
// With* helpers return modified copies with a new generation.
package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// CheckedFlagPrefix marks a flag that records a checked location.
const CheckedFlagPrefix = "checked:"

// RegionState is the reachability classification of a region. The zero
// value is RegionUnknown, which is never equivalent to RegionUnreachable.
type RegionState int

// RegionState constants.
const (
	RegionUnknown RegionState = iota
	RegionUnreachable
	RegionReachable
	RegionChecked
)

var regionStateStrings = [...]string{
	"unknown",
	"unreachable",
	"reachable",
	"checked",
}

func (s RegionState) String() string {
	if s >= 0 && int(s) < len(regionStateStrings) {
		return regionStateStrings[s]
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Reached reports whether s is Reachable or Checked.
func (s RegionState) Reached() bool {
	return s == RegionReachable || s == RegionChecked
}

// MarshalText encodes the state name.
func (s RegionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name, case-insensitively.
func (s *RegionState) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, v := range regionStateStrings {
		if v == name {
			*s = RegionState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown region state %q", text)
}

// Set is a string set encoded as a sorted JSON list.
type Set map[string]struct{}

// NewSet builds a set from its members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s Set) Has(member string) bool {
	_, ok := s[member]
	return ok
}

// Sorted returns the members in sorted order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a list of members.
func (s *Set) UnmarshalJSON(data []byte) error {
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*s = NewSet(members...)
	return nil
}

// Player identifies the slot whose state this is.
type Player struct {
	Slot int    `json:"slot"`
	Name string `json:"name,omitempty"`
}

// Snapshot is the dynamic state at one instant.
type Snapshot struct {
	Game               string                 `json:"game"`
	Player             Player                 `json:"player"`
	Generation         uint64                 `json:"generation"`
	Inventory          map[string]int         `json:"inventory,omitempty"`
	Flags              Set                    `json:"flags,omitempty"`
	CheckedLocations   Set                    `json:"checked_locations,omitempty"`
	Settings           map[string]any         `json:"settings,omitempty"`
	RegionReachability map[string]RegionState `json:"region_reachability,omitempty"`
}

// New returns an empty snapshot for game and player slot.
func New(game string, slot int) *Snapshot {
	return &Snapshot{
		Game:               game,
		Player:             Player{Slot: slot},
		Inventory:          make(map[string]int),
		Flags:              make(Set),
		CheckedLocations:   make(Set),
		Settings:           make(map[string]any),
		RegionReachability: make(map[string]RegionState),
	}
}

// Count returns the inventory count of item; missing items count zero.
func (s *Snapshot) Count(item string) int {
	return s.Inventory[item]
}

// HasFlag reports whether flag is set.
func (s *Snapshot) HasFlag(flag string) bool {
	return s.Flags.Has(flag)
}

// Setting returns a setting value and whether it exists.
func (s *Snapshot) Setting(name string) (any, bool) {
	v, ok := s.Settings[name]
	return v, ok
}

// IsChecked reports whether a location has been checked, either through
// the checked set or a checked-location flag.
func (s *Snapshot) IsChecked(location string) bool {
	return s.CheckedLocations.Has(location) || s.Flags.Has(CheckedFlagPrefix+location)
}

// RegionState returns the cached state of a region. Missing entries are
// RegionUnknown.
func (s *Snapshot) RegionState(region string) RegionState {
	return s.RegionReachability[region]
}

// Clone returns a deep copy with the next generation number.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Game:               s.Game,
		Player:             s.Player,
		Generation:         s.Generation + 1,
		Inventory:          maps.Clone(s.Inventory),
		Flags:              maps.Clone(s.Flags),
		CheckedLocations:   maps.Clone(s.CheckedLocations),
		Settings:           maps.Clone(s.Settings),
		RegionReachability: maps.Clone(s.RegionReachability),
	}
	if c.Inventory == nil {
		c.Inventory = make(map[string]int)
	}
	if c.Flags == nil {
		c.Flags = make(Set)
	}
	if c.CheckedLocations == nil {
		c.CheckedLocations = make(Set)
	}
	if c.Settings == nil {
		c.Settings = make(map[string]any)
	}
	if c.RegionReachability == nil {
		c.RegionReachability = make(map[string]RegionState)
	}
	return c
}

// WithItem returns a copy with count added to item. Counts never drop
// below zero.
func (s *Snapshot) WithItem(item string, count int) *Snapshot {
	c := s.Clone()
	c.Inventory[item] = max(c.Inventory[item]+count, 0)
	return c
}

// WithFlag returns a copy with flag set.
func (s *Snapshot) WithFlag(flag string) *Snapshot {
	c := s.Clone()
	c.Flags[flag] = struct{}{}
	return c
}

// WithChecked returns a copy with location marked checked.
func (s *Snapshot) WithChecked(location string) *Snapshot {
	c := s.Clone()
	c.CheckedLocations[location] = struct{}{}
	return c
}

// WithSetting returns a copy with a setting value replaced.
func (s *Snapshot) WithSetting(name string, value any) *Snapshot {
	c := s.Clone()
	c.Settings[name] = value
	return c
}

// Parse decodes a snapshot from JSON. Negative inventory counts are
// clamped to 0.
func Parse(data []byte) (*Snapshot, error) {
	s := New("", 0)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, oops.In("snapshot").Wrapf(err, "decoding snapshot")
	}
	for item, n := range s.Inventory {
		if n < 0 {
			s.Inventory[item] = 0
		}
	}
	return s, nil
}

// LoadFile reads a JSON snapshot from disk.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("snapshot").With("path", path).Wrapf(err, "reading snapshot")
	}
	return Parse(data)
}
