// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package view

import (
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
)

// StateHandle is the value of the "state" name.
type StateHandle struct{ v *View }

// GroupTable is the value of the "groups" name; attributes are group
// names resolving to member lists.
type GroupTable struct{ data *static.Data }

// ResolveName resolves an identifier: context bindings first, then the
// fixed symbol table.
func (v *View) ResolveName(name string) (any, bool) {
	if val, ok := v.bindings[name]; ok {
		return val, true
	}
	switch name {
	case "inventory":
		return v.snap.Inventory, true
	case "settings":
		return v.snap.Settings, true
	case "flags":
		return v.snap.Flags, true
	case "state":
		return StateHandle{v: v}, true
	case "regions":
		return v.data.Regions, true
	case "locations":
		return v.data.Locations, true
	case "items":
		return v.data.Items, true
	case "groups":
		return GroupTable{data: v.data}, true
	case "dungeons":
		return v.data.Dungeons, true
	case "player":
		return v.snap.Player.Slot, true
	case "world":
		return v.Game(), true
	case "True", "true":
		return true, true
	case "False", "false":
		return false, true
	case "None", "null":
		return nil, true
	}
	return nil, false
}

// ResolveAttribute looks up field on base. Dataset objects expose their
// fields by wire name plus these aliases:
//
//	location.parent_region  region object, from region, then parent_region,
//	                        then the dataset's own entry for the location
//	entrance.parent_region  source region object
//	entrance.connected_region
//	                        destination region object
//
// Maps resolve keys; dataset objects fall back to their attributes map.
func (v *View) ResolveAttribute(base any, field string) (any, bool) {
	switch b := base.(type) {
	case *static.Location:
		return v.locationAttr(b, field)
	case *static.Region:
		return v.regionAttr(b, field)
	case *static.Exit:
		return v.exitAttr(b, field)
	case *static.Item:
		switch field {
		case "name":
			return b.Name, true
		case "groups":
			return b.Groups, true
		}
		return lookup(b.Attributes, field)
	case *static.Dungeon:
		return dungeonAttr(b, field)
	case StateHandle:
		return v.stateAttr(field)
	case GroupTable:
		members := b.data.GroupMembers(field)
		return members, members != nil
	case map[string]int:
		return b[field], true
	case snapshot.Set:
		return b.Has(field), true
	case map[string]any:
		return lookup(b, field)
	case map[string]*static.Region:
		r, ok := b[field]
		return r, ok
	case map[string]*static.Location:
		l, ok := b[field]
		return l, ok
	case map[string]*static.Item:
		it, ok := b[field]
		return it, ok
	case map[string]*static.Dungeon:
		d, ok := b[field]
		return d, ok
	}
	return nil, false
}

func lookup(m map[string]any, key string) (any, bool) {
	val, ok := m[key]
	return val, ok
}

func (v *View) region(name string) (any, bool) {
	if name == "" {
		return nil, false
	}
	if r, ok := v.data.Region(name); ok {
		return r, true
	}
	return nil, false
}

func (v *View) locationAttr(l *static.Location, field string) (any, bool) {
	switch field {
	case "parent_region":
		if l.Region != "" {
			return v.region(l.Region)
		}
		if l.ParentRegion != "" {
			return v.region(l.ParentRegion)
		}
		if def, ok := v.data.Location(l.Name); ok && def != l {
			return v.region(def.RegionName())
		}
		return nil, false
	case "name":
		return l.Name, true
	case "region":
		return l.RegionName(), l.RegionName() != ""
	case "item":
		return l.Item, l.Item != ""
	case "checked":
		return v.snap.IsChecked(l.Name), true
	}
	return lookup(l.Attributes, field)
}

func (v *View) regionAttr(r *static.Region, field string) (any, bool) {
	switch field {
	case "name":
		return r.Name, true
	case "locations":
		return r.Locations, true
	case "exits":
		exits := make([]any, len(r.Exits))
		for i, e := range r.Exits {
			exits[i] = e
		}
		return exits, true
	case "state":
		return v.RegionState(r.Name).String(), true
	}
	return lookup(r.Attributes, field)
}

func (v *View) exitAttr(e *static.Exit, field string) (any, bool) {
	switch field {
	case "name":
		return e.Name, true
	case "parent_region":
		return v.region(e.ParentRegion())
	case "connected_region":
		return v.region(e.ConnectedRegion)
	}
	return nil, false
}

func dungeonAttr(d *static.Dungeon, field string) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "regions":
		return d.Regions, true
	case "locations":
		return d.Locations, true
	case "small_key":
		return d.SmallKey, d.SmallKey != ""
	case "big_key":
		return d.BigKey, d.BigKey != ""
	case "small_key_count":
		return d.SmallKeyCount, true
	}
	return nil, false
}

func (v *View) stateAttr(field string) (any, bool) {
	switch field {
	case "player":
		return v.snap.Player.Slot, true
	case "game":
		return v.Game(), true
	case "generation":
		return v.snap.Generation, true
	case "inventory":
		return v.snap.Inventory, true
	case "flags":
		return v.snap.Flags, true
	case "settings":
		return v.snap.Settings, true
	}
	return nil, false
}
