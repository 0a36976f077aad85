// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package helpers provides per-game tables of named logic helpers and the
// registry that dispatches to them, falling back to a generic table.
package helpers

import (
	"sort"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
)

// Func implements a helper. args are evaluated rule values with any
// interleaved player argument already removed.
type Func func(env *Env, args ...any) (any, error)

// Query is the part of the evaluation context a helper may call back into.
type Query interface {
	HasItem(name string, count int) bool
	CountItem(name string) int
	CountGroup(group string) int
	RegionReachable(region string) (eval.Tri, error)
	LocationAccessible(location any) (eval.Tri, error)
}

// Env is passed to every helper call.
type Env struct {
	Snapshot *snapshot.Snapshot
	Static   *static.Data
	// World is the active game's tag.
	World string
	// Query may be nil when a helper is called outside an evaluation.
	Query Query
}

// Count returns the effective count of item, including game overrides
// when a Query is attached.
func (e *Env) Count(item string) int {
	if e.Query != nil {
		return e.Query.CountItem(item)
	}
	if e.Snapshot == nil {
		return 0
	}
	return e.Snapshot.Count(item)
}

// Has reports whether the player has count of item, applying the game's
// "has" override when a Query is attached. Counts below 1 mean 1.
func (e *Env) Has(item string, count int) bool {
	if e.Query != nil {
		return e.Query.HasItem(item, count)
	}
	return e.Count(item) >= max(count, 1)
}

// Table is a named set of helpers for one game.
type Table struct {
	Game  string
	funcs map[string]Func
}

// NewTable creates an empty table for game.
func NewTable(game string) *Table {
	return &Table{Game: game, funcs: make(map[string]Func)}
}

// Set adds or replaces a helper and returns t for chaining.
func (t *Table) Set(name string, fn Func) *Table {
	t.funcs[name] = fn
	return t
}

// Get returns the named helper.
func (t *Table) Get(name string) (Func, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.funcs[name]
	return fn, ok
}

// Names returns helper names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for n := range t.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of helpers.
func (t *Table) Len() int { return len(t.funcs) }
