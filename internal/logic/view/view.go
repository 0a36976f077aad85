// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package view builds the read-only evaluation context rules run against
// from a snapshot, a dataset and optional context bindings.
package view

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/helpers"
	"github.com/holomush/reachlogic/internal/logic/rule"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
	"github.com/holomush/reachlogic/pkg/errutil"
)

// View implements eval.Interface over one snapshot and dataset. It borrows
// both and never modifies them. A View is safe for concurrent use.
type View struct {
	snap     *snapshot.Snapshot
	data     *static.Data
	registry *helpers.Registry
	eval     *eval.Evaluator
	logger   *slog.Logger

	bindings map[string]any
	regions  map[string]snapshot.RegionState
	// chain lists the locations and exits whose rules are being
	// evaluated, outermost first, as "<kind>:<name>".
	chain []string
}

var _ eval.Interface = (*View)(nil)

// Option configures a View.
type Option func(*View)

// WithContext adds bindings consulted before the fixed symbol table, such
// as {"location": <location>}.
func WithContext(bindings map[string]any) Option {
	return func(v *View) {
		if v.bindings == nil {
			v.bindings = make(map[string]any, len(bindings))
		}
		maps.Copy(v.bindings, bindings)
	}
}

// WithRegistry sets the helper registry. Defaults to helpers.Default().
func WithRegistry(r *helpers.Registry) Option {
	return func(v *View) { v.registry = r }
}

// WithRegionStates overrides the snapshot's region reachability cache. The
// map is borrowed and must not change while the View is in use.
func WithRegionStates(states map[string]snapshot.RegionState) Option {
	return func(v *View) { v.regions = states }
}

// WithEvaluator sets the evaluator used for nested location and exit
// rules. Defaults to eval.New().
func WithEvaluator(e *eval.Evaluator) Option {
	return func(v *View) { v.eval = e }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) { v.logger = logger }
}

var defaultRegistry = helpers.Default()

// Build creates a View over snap and data.
func Build(snap *snapshot.Snapshot, data *static.Data, opts ...Option) *View {
	v := &View{snap: snap, data: data}
	for _, opt := range opts {
		opt(v)
	}
	if v.registry == nil {
		v.registry = defaultRegistry
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.eval == nil {
		v.eval = eval.New(eval.WithLogger(v.logger))
	}
	return v
}

// Snapshot returns the borrowed snapshot.
func (v *View) Snapshot() *snapshot.Snapshot { return v.snap }

// Static returns the borrowed dataset.
func (v *View) Static() *static.Data { return v.data }

// Evaluator returns the evaluator used by this view.
func (v *View) Evaluator() *eval.Evaluator { return v.eval }

// Game returns the active game id, preferring the dataset's.
func (v *View) Game() string {
	if v.data.Game != "" {
		return v.data.Game
	}
	return v.snap.Game
}

// Evaluate evaluates node against this view.
func (v *View) Evaluate(node *rule.Node, contextName string) (bool, error) {
	return v.eval.Evaluate(node, v, contextName)
}

// With returns a child view with extra bindings.
func (v *View) With(bindings map[string]any) *View {
	c := *v
	c.bindings = make(map[string]any, len(v.bindings)+len(bindings))
	maps.Copy(c.bindings, v.bindings)
	maps.Copy(c.bindings, bindings)
	return &c
}

func (v *View) env() *helpers.Env {
	return &helpers.Env{Snapshot: v.snap, Static: v.data, World: v.Game(), Query: v}
}

// HasItem applies a game "has" override when registered, otherwise checks
// that the effective count is at least max(count, 1).
func (v *View) HasItem(name string, count int) bool {
	if fn, ok := v.registry.Override(v.Game(), "has"); ok {
		env := v.env()
		env.Query = baseQuery{v}
		res, err := fn(env, name, count)
		if err == nil {
			return eval.Truthy(res)
		}
		errutil.LogError(v.logger, "has override failed", err)
	}
	return v.CountItem(name) >= max(count, 1)
}

// baseQuery is handed to a "has" override so helpers it calls see the
// plain count comparison instead of re-entering the override.
type baseQuery struct{ *View }

func (q baseQuery) HasItem(name string, count int) bool {
	return q.CountItem(name) >= max(count, 1)
}

// CountItem applies a game "count" override when registered, otherwise
// reads the inventory.
func (v *View) CountItem(name string) int {
	if fn, ok := v.registry.Override(v.Game(), "count"); ok {
		res, err := fn(&helpers.Env{Snapshot: v.snap, Static: v.data, World: v.Game()}, name)
		if err == nil {
			if n, ok := eval.ToInt(res); ok {
				return n
			}
			err = eval.ErrTypeMismatch("count", res, 0)
		}
		errutil.LogError(v.logger, "count override failed", err)
	}
	return v.snap.Count(name)
}

// CountGroup sums inventory counts over the items tagged with group.
func (v *View) CountGroup(group string) int {
	n := 0
	for _, item := range v.data.GroupMembers(group) {
		n += v.snap.Count(item)
	}
	return n
}

// HasFlag reports whether a snapshot flag is set.
func (v *View) HasFlag(name string) bool { return v.snap.HasFlag(name) }

// Setting returns a snapshot setting.
func (v *View) Setting(name string) (any, bool) { return v.snap.Setting(name) }

// RegionState returns the known state of region: the override map first,
// then the snapshot cache.
func (v *View) RegionState(region string) snapshot.RegionState {
	if s, ok := v.regions[region]; ok {
		return s
	}
	return v.snap.RegionState(region)
}

// RegionReachable maps the region's state onto a Tri. Missing cache
// entries are Unknown; regions missing from the dataset are faults.
func (v *View) RegionReachable(region string) (eval.Tri, error) {
	if _, ok := v.data.Region(region); !ok {
		return eval.Unknown, eval.ErrMissingStaticData("region", region)
	}
	switch s := v.RegionState(region); {
	case s.Reached():
		return eval.True, nil
	case s == snapshot.RegionUnreachable:
		return eval.False, nil
	default:
		return eval.Unknown, nil
	}
}

func (v *View) location(ref any) (*static.Location, error) {
	switch l := ref.(type) {
	case *static.Location:
		if l != nil {
			return l, nil
		}
	case string:
		if loc, ok := v.data.Location(l); ok {
			return loc, nil
		}
		return nil, eval.ErrMissingStaticData("location", l)
	}
	return nil, eval.ErrTypeMismatch("can_reach", ref, &static.Location{})
}

// LocationAccessible is parent region reachability AND the location's
// rule. The rule runs with the location bound as "location". A location
// whose rule depends on itself is a CYCLIC_REFERENCE fault.
func (v *View) LocationAccessible(ref any) (eval.Tri, error) {
	loc, err := v.location(ref)
	if err != nil {
		return eval.Unknown, err
	}
	child, err := v.enter(eval.KindLocation, loc.Name, map[string]any{"location": loc})
	if err != nil {
		return eval.Unknown, err
	}

	region, err := v.RegionReachable(loc.RegionName())
	if err != nil {
		return eval.Unknown, err
	}
	if region == eval.False {
		return eval.False, nil
	}

	ok, err := v.eval.Evaluate(loc.AccessRule, child, loc.Name)
	if err != nil {
		return eval.Unknown, err
	}
	return region.And(eval.TriOf(ok)), nil
}

// ExitAccessible looks up the named exit and reports EntranceAccessible
// for it.
func (v *View) ExitAccessible(name string) (eval.Tri, error) {
	exit, ok := v.data.Exit(name)
	if !ok {
		return eval.Unknown, eval.ErrMissingStaticData("exit", name)
	}
	return v.EntranceAccessible(exit)
}

// EntranceAccessible is source region reachability AND the exit's rule,
// with the exit bound as "entrance".
func (v *View) EntranceAccessible(exit *static.Exit) (eval.Tri, error) {
	child, err := v.enter(eval.KindEntrance, exit.Key(), map[string]any{"entrance": exit})
	if err != nil {
		return eval.Unknown, err
	}
	region, err := v.RegionReachable(exit.ParentRegion())
	if err != nil {
		return eval.Unknown, err
	}
	if region == eval.False {
		return eval.False, nil
	}
	ok, err := v.eval.Evaluate(exit.AccessRule, child, exit.Name)
	if err != nil {
		return eval.Unknown, err
	}
	return region.And(eval.TriOf(ok)), nil
}

// enter returns a child view for evaluating the rule of kind:name, or a
// CYCLIC_REFERENCE fault when that rule is already being evaluated.
func (v *View) enter(kind, name string, bindings map[string]any) (*View, error) {
	key := kind + ":" + name
	if slices.Contains(v.chain, key) {
		return nil, eval.ErrCyclicReference(append(slices.Clone(v.chain), key))
	}
	child := v.With(bindings)
	child.chain = append(slices.Clone(v.chain), key)
	return child, nil
}

// ExecuteHelper dispatches through the registry for the active game.
// Panics inside helpers are recovered as HELPER_FAILED faults.
func (v *View) ExecuteHelper(call eval.HelperCall) (result any, err error) {
	res, ok := v.registry.Lookup(v.Game(), v.data.Version, call.Name)
	if !ok {
		return nil, eval.ErrUnknownHelper(v.Game(), call.Name)
	}
	args := call.Args
	if call.Method && res.PlayerArg >= 0 && res.PlayerArg < len(args) {
		args = slices.Delete(slices.Clone(args), res.PlayerArg, res.PlayerArg+1)
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, eval.ErrHelperFailed(res.Name, fmt.Errorf("panic: %v", r))
		}
	}()
	result, err = res.Func(v.env(), args...)
	if err != nil {
		return nil, eval.ErrHelperFailed(res.Name, err)
	}
	return result, nil
}
