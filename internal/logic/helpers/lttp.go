// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package helpers

import (
	"fmt"
)

// GameLTTP is the game id of A Link to the Past.
const GameLTTP = "A Link to the Past"

// progressiveTier places an item on a progressive chain: owning at least
// Tier copies of Chain implies owning the item.
type progressiveTier struct {
	Chain string
	Tier  int
}

var lttpProgressive = map[string]progressiveTier{
	"Fighter Sword":  {"Progressive Sword", 1},
	"Master Sword":   {"Progressive Sword", 2},
	"Tempered Sword": {"Progressive Sword", 3},
	"Golden Sword":   {"Progressive Sword", 4},
	"Power Glove":    {"Progressive Glove", 1},
	"Titans Mitt":    {"Progressive Glove", 2},
	"Blue Shield":    {"Progressive Shield", 1},
	"Red Shield":     {"Progressive Shield", 2},
	"Mirror Shield":  {"Progressive Shield", 3},
	"Blue Mail":      {"Progressive Mail", 1},
	"Red Mail":       {"Progressive Mail", 2},
	"Bow":            {"Progressive Bow", 1},
	"Silver Bow":     {"Progressive Bow", 2},
}

// LTTP returns the helper table for A Link to the Past. Its "count" entry
// overrides the built-in item count so that progressive items satisfy
// queries for the tiers they represent.
func LTTP() *Table {
	return NewTable(GameLTTP).
		Set("count", lttpCount).
		Set("can_lift_rocks", lttpAny("Power Glove", "Titans Mitt")).
		Set("can_lift_heavy_rocks", lttpAny("Titans Mitt")).
		Set("has_sword", lttpAny(lttpSwords...)).
		Set("has_beam_sword", lttpAny("Master Sword", "Tempered Sword", "Golden Sword")).
		Set("can_shoot_arrows", lttpAny("Bow", "Silver Bow")).
		Set("has_fire_source", lttpAny("Fire Rod", "Lamp")).
		Set("can_melt_things", lttpCanMelt).
		Set("has_key", lttpHasKey)
}

// LTTPAliases maps the upstream compiler's A Link to the Past call names.
func LTTPAliases() *AliasSet {
	return NewAliasSet().
		MustAdd("_lttp_has_key", "has_specific_key_count", 1, "").
		MustAdd("can_melt", "can_melt_things", NoPlayerArg, "< 0.4.0").
		MustAdd("lttp_has_key", "has_key", 1, ">= 0.4.0")
}

// lttpCount counts an item directly from the snapshot, adding one when the
// owned progressive chain reaches the item's tier.
func lttpCount(env *Env, args ...any) (any, error) {
	item, err := nameArg("count", args, 0)
	if err != nil {
		return nil, err
	}
	if env.Snapshot == nil {
		return 0, nil
	}
	n := env.Snapshot.Count(item)
	if p, ok := lttpProgressive[item]; ok && env.Snapshot.Count(p.Chain) >= p.Tier {
		n++
	}
	return n, nil
}

var lttpSwords = []string{"Fighter Sword", "Master Sword", "Tempered Sword", "Golden Sword"}

func hasAny(env *Env, items []string) bool {
	for _, item := range items {
		if env.Has(item, 1) {
			return true
		}
	}
	return false
}

func lttpAny(items ...string) Func {
	return func(env *Env, _ ...any) (any, error) {
		return hasAny(env, items), nil
	}
}

func lttpCanMelt(env *Env, _ ...any) (any, error) {
	return env.Has("Fire Rod", 1) || (env.Has("Bombos", 1) && hasAny(env, lttpSwords)), nil
}

// has_key(dungeon, count): count defaults to the dungeon's small key
// total, and the key item to "Small Key (<dungeon>)".
func lttpHasKey(env *Env, args ...any) (any, error) {
	name, err := nameArg("has_key", args, 0)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("Small Key (%s)", name)
	want := 1
	if env.Static != nil {
		if d, ok := env.Static.Dungeon(name); ok {
			if d.SmallKey != "" {
				key = d.SmallKey
			}
			if d.SmallKeyCount > 0 {
				want = d.SmallKeyCount
			}
		}
	}
	want, err = countArg("has_key", args, 1, want)
	if err != nil {
		return nil, err
	}
	return env.Has(key, want), nil
}
