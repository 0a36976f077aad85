// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package static holds the immutable per-ruleset logic graph: items,
// locations, regions with their exits, item groups and dungeons.
package static

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/oops"

	"github.com/holomush/reachlogic/internal/logic/rule"
)

// DefaultStartRegion is used when a dataset names no start regions.
const DefaultStartRegion = "Menu"

// CodeMissingStaticData marks references to locations or regions absent
// from the dataset. It indicates a corrupt ruleset.
const CodeMissingStaticData = "MISSING_STATIC_DATA"

// Item is a collectable item definition.
type Item struct {
	Name       string         `json:"name,omitempty"`
	Groups     []string       `json:"groups,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Location is a checkable point inside a region.
type Location struct {
	Name string `json:"name,omitempty"`
	// Region names the containing region. ParentRegion is accepted from
	// exporters that use that key instead.
	Region       string         `json:"region,omitempty"`
	ParentRegion string         `json:"parent_region,omitempty"`
	AccessRule   *rule.Node     `json:"access_rule,omitempty"`
	Item         string         `json:"item,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// RegionName returns the containing region, preferring Region over
// ParentRegion.
func (l *Location) RegionName() string {
	if l.Region != "" {
		return l.Region
	}
	return l.ParentRegion
}

// Exit is a directed edge from its parent region to ConnectedRegion.
type Exit struct {
	Name            string     `json:"name"`
	ConnectedRegion string     `json:"connected_region"`
	AccessRule      *rule.Node `json:"access_rule,omitempty"`

	parent string
}

// ParentRegion returns the region the exit leaves from. It is set by Index.
func (e *Exit) ParentRegion() string { return e.parent }

// Key identifies the exit within its dataset as "Region/Name". Exit names
// alone may repeat across regions.
func (e *Exit) Key() string { return e.parent + "/" + e.Name }

// Region is a node of the world graph.
type Region struct {
	Name       string         `json:"name,omitempty"`
	Locations  []string       `json:"locations,omitempty"`
	Exits      []*Exit        `json:"exits,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Dungeon groups regions and locations that share keys.
type Dungeon struct {
	Name          string   `json:"name,omitempty"`
	Regions       []string `json:"regions,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	SmallKey      string   `json:"small_key,omitempty"`
	BigKey        string   `json:"big_key,omitempty"`
	SmallKeyCount int      `json:"small_key_count,omitempty"`
}

// Data is the immutable dataset for one game and player.
type Data struct {
	Game         string               `json:"game"`
	Version      string               `json:"version,omitempty"`
	StartRegions []string             `json:"start_regions,omitempty"`
	Items        map[string]*Item     `json:"items,omitempty"`
	Locations    map[string]*Location `json:"locations"`
	Regions      map[string]*Region   `json:"regions"`
	Groups       map[string][]string  `json:"groups,omitempty"`
	Dungeons     map[string]*Dungeon  `json:"dungeons,omitempty"`

	groupIndex map[string][]string
	exitIndex  map[string]*Exit
}

// Index fills derived fields: names from map keys, region location lists,
// exit parents and the merged group table. It must be called once after
// construction and before the dataset is shared.
func (d *Data) Index() {
	if d.Items == nil {
		d.Items = make(map[string]*Item)
	}
	if d.Locations == nil {
		d.Locations = make(map[string]*Location)
	}
	if d.Regions == nil {
		d.Regions = make(map[string]*Region)
	}
	if len(d.StartRegions) == 0 {
		d.StartRegions = []string{DefaultStartRegion}
	}

	for name, item := range d.Items {
		if item.Name == "" {
			item.Name = name
		}
	}
	for name, dungeon := range d.Dungeons {
		if dungeon.Name == "" {
			dungeon.Name = name
		}
	}

	d.exitIndex = make(map[string]*Exit)
	for _, name := range sortedKeys(d.Regions) {
		region := d.Regions[name]
		if region.Name == "" {
			region.Name = name
		}
		for _, exit := range region.Exits {
			exit.parent = name
			if _, dup := d.exitIndex[exit.Name]; !dup {
				d.exitIndex[exit.Name] = exit
			}
		}
	}

	for name, loc := range d.Locations {
		if loc.Name == "" {
			loc.Name = name
		}
		region, ok := d.Regions[loc.RegionName()]
		if !ok {
			continue
		}
		if !containsString(region.Locations, name) {
			region.Locations = append(region.Locations, name)
		}
	}
	for _, region := range d.Regions {
		sort.Strings(region.Locations)
	}

	d.groupIndex = make(map[string][]string)
	for group, members := range d.Groups {
		for _, m := range members {
			d.addGroupMember(group, m)
		}
	}
	for name, item := range d.Items {
		for _, group := range item.Groups {
			d.addGroupMember(group, name)
		}
	}
	for _, members := range d.groupIndex {
		sort.Strings(members)
	}
}

func (d *Data) addGroupMember(group, item string) {
	if !containsString(d.groupIndex[group], item) {
		d.groupIndex[group] = append(d.groupIndex[group], item)
	}
}

// Validate reports every dangling reference in the dataset. The returned
// error joins one MISSING_STATIC_DATA error per problem.
func (d *Data) Validate() error {
	var errs []error
	for _, name := range sortedKeys(d.Locations) {
		loc := d.Locations[name]
		if loc.RegionName() == "" {
			errs = append(errs, missing("location", name, "region", ""))
			continue
		}
		if _, ok := d.Regions[loc.RegionName()]; !ok {
			errs = append(errs, missing("location", name, "region", loc.RegionName()))
		}
	}
	for _, name := range sortedKeys(d.Regions) {
		region := d.Regions[name]
		for _, exit := range region.Exits {
			if _, ok := d.Regions[exit.ConnectedRegion]; !ok {
				errs = append(errs, missing("exit", exit.Name, "connected_region", exit.ConnectedRegion))
			}
		}
		for _, locName := range region.Locations {
			if _, ok := d.Locations[locName]; !ok {
				errs = append(errs, missing("region", name, "location", locName))
			}
		}
	}
	for _, start := range d.StartRegions {
		if _, ok := d.Regions[start]; !ok {
			errs = append(errs, missing("dataset", d.Game, "start_region", start))
		}
	}
	return errors.Join(errs...)
}

func missing(kind, name, field, ref string) error {
	return oops.Code(CodeMissingStaticData).
		With("kind", kind).
		With("name", name).
		With("field", field).
		With("reference", ref).
		Errorf("%s %q references unknown %s %q", kind, name, field, ref)
}

// Location returns the named location.
func (d *Data) Location(name string) (*Location, bool) {
	loc, ok := d.Locations[name]
	return loc, ok
}

// Region returns the named region.
func (d *Data) Region(name string) (*Region, bool) {
	r, ok := d.Regions[name]
	return r, ok
}

// Exit returns the named exit. When several regions have an exit with
// that name, the one in the alphabetically first region wins.
func (d *Data) Exit(name string) (*Exit, bool) {
	e, ok := d.exitIndex[name]
	return e, ok
}

// Item returns the named item definition.
func (d *Data) Item(name string) (*Item, bool) {
	it, ok := d.Items[name]
	return it, ok
}

// Dungeon returns the named dungeon.
func (d *Data) Dungeon(name string) (*Dungeon, bool) {
	dg, ok := d.Dungeons[name]
	return dg, ok
}

// GroupMembers returns the items tagged with group, sorted. The slice is
// shared and must not be modified.
func (d *Data) GroupMembers(group string) []string {
	return d.groupIndex[group]
}

// RegionOf returns the region containing the named location.
func (d *Data) RegionOf(location string) (*Region, error) {
	loc, ok := d.Locations[location]
	if !ok {
		return nil, oops.Code(CodeMissingStaticData).
			With("location", location).
			Errorf("unknown location %q", location)
	}
	r, ok := d.Regions[loc.RegionName()]
	if !ok {
		return nil, oops.Code(CodeMissingStaticData).
			With("location", location).
			With("region", loc.RegionName()).
			Errorf("location %q is in unknown region %q", location, loc.RegionName())
	}
	return r, nil
}

// RegionNames returns all region names in sorted order.
func (d *Data) RegionNames() []string { return sortedKeys(d.Regions) }

// LocationNames returns all location names in sorted order.
func (d *Data) LocationNames() []string { return sortedKeys(d.Locations) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String identifies the dataset in logs.
func (d *Data) String() string {
	return fmt.Sprintf("%s (%d regions, %d locations)", d.Game, len(d.Regions), len(d.Locations))
}
