// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package reach propagates region reachability through the exit graph to a
// fixpoint and classifies every location of a dataset.
package reach

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/helpers"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
	"github.com/holomush/reachlogic/internal/logic/view"
	"github.com/holomush/reachlogic/pkg/errutil"
)

var tracer = otel.Tracer("reachlogic/reach")

// CodePropagationLimit marks a computation stopped by the pass cap or by
// context cancellation. No partial result is returned with it.
const CodePropagationLimit = "PROPAGATION_LIMIT"

// DefaultMaxPasses bounds the fixpoint loop. Each productive pass reaches
// at least one new region, so datasets need at most len(regions)+1 passes.
const DefaultMaxPasses = 1024

// Fault kinds.
const (
	FaultLocation = "location"
	FaultExit     = "exit"
)

// Fault is a rule evaluation failure for one location or exit. Name is the
// location name or the exit key.
type Fault struct {
	Kind string
	Name string
	Err  error
}

// Code returns the oops code of the fault's error.
func (f Fault) Code() string { return errutil.Code(f.Err) }

// Result is the outcome of one propagation over one snapshot generation.
type Result struct {
	Generation uint64
	Passes     int
	// Regions holds every dataset region as Reachable, Checked or
	// Unreachable.
	Regions map[string]snapshot.RegionState
	// Locations holds every non-faulted location; true means accessible
	// and not yet checked.
	Locations map[string]bool
	// Exits holds every non-faulted exit, keyed by static.Exit.Key.
	Exits map[string]bool
	// Unknown lists faulted locations, sorted.
	Unknown []string
	Faults  []Fault
}

// Accessible returns the accessible location names, sorted.
func (r *Result) Accessible() []string {
	var out []string
	for name, ok := range r.Locations {
		if ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Annotate returns a copy of snap, at the same generation, whose region
// reachability cache holds the computed region states.
func (r *Result) Annotate(snap *snapshot.Snapshot) *snapshot.Snapshot {
	c := snap.Clone()
	c.Generation = snap.Generation
	c.RegionReachability = maps.Clone(r.Regions)
	return c
}

type config struct {
	workers   int
	maxPasses int
	starts    []string
	evaluator *eval.Evaluator
	registry  *helpers.Registry
	logger    *slog.Logger
}

// Option configures Compute.
type Option func(*config)

// WithWorkers evaluates locations in parallel with up to n goroutines.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithMaxPasses caps the number of fixpoint passes.
func WithMaxPasses(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPasses = n
		}
	}
}

// WithStartRegions overrides the dataset's start regions.
func WithStartRegions(regions ...string) Option {
	return func(c *config) { c.starts = regions }
}

// WithEvaluator sets the rule evaluator.
func WithEvaluator(e *eval.Evaluator) Option {
	return func(c *config) { c.evaluator = e }
}

// WithRegistry sets the helper registry.
func WithRegistry(r *helpers.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func (c *config) viewOptions(states map[string]snapshot.RegionState) []view.Option {
	opts := []view.Option{view.WithRegionStates(states), view.WithLogger(c.logger)}
	if c.evaluator != nil {
		opts = append(opts, view.WithEvaluator(c.evaluator))
	}
	if c.registry != nil {
		opts = append(opts, view.WithRegistry(c.registry))
	}
	return opts
}

// Compute propagates reachability from the start regions and classifies
// every location and exit of data against snap.
func Compute(ctx context.Context, snap *snapshot.Snapshot, data *static.Data, opts ...Option) (result *Result, err error) {
	cfg := &config{maxPasses: DefaultMaxPasses, workers: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if len(cfg.starts) == 0 {
		cfg.starts = data.StartRegions
	}
	if len(cfg.starts) == 0 {
		cfg.starts = []string{static.DefaultStartRegion}
	}

	ctx, span := tracer.Start(ctx, "reach.compute",
		trace.WithAttributes(
			attribute.String("game", data.Game),
			attribute.Int64("generation", int64(snap.Generation)),
			attribute.Int("regions", len(data.Regions)),
			attribute.Int("locations", len(data.Locations)),
		),
	)
	start := time.Now()
	passes := 0
	defer func() {
		outcome := outcomeOK
		switch {
		case errutil.HasCode(err, CodePropagationLimit):
			outcome = outcomeLimit
		case err != nil:
			outcome = outcomeError
		}
		recordCompute(time.Since(start), passes, outcome)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("passes", passes),
				attribute.Int("faults", len(result.Faults)),
			)
		}
		span.End()
	}()

	reached := make(map[string]bool, len(data.Regions))
	for _, name := range cfg.starts {
		if _, ok := data.Region(name); !ok {
			return nil, eval.ErrMissingStaticData("region", name)
		}
		reached[name] = true
	}

	passes, err = propagate(ctx, cfg, snap, data, reached)
	if err != nil {
		return nil, err
	}

	result = &Result{
		Generation: snap.Generation,
		Passes:     passes,
		Regions:    finalStates(snap, data, reached),
		Locations:  make(map[string]bool, len(data.Locations)),
		Exits:      make(map[string]bool),
	}
	v := view.Build(snap, data, cfg.viewOptions(result.Regions)...)
	if err := result.classify(ctx, cfg, v); err != nil {
		return nil, err
	}

	cfg.logger.Debug("reachability computed",
		"game", data.Game,
		"generation", snap.Generation,
		"passes", passes,
		"regions_reached", len(reached),
		"accessible", len(result.Accessible()),
		"faults", len(result.Faults),
	)
	return result, nil
}

// propagate runs fixpoint passes over the exit graph, adding every region
// reached to reached. Each pass evaluates against a frozen copy of the
// states from the previous pass. It returns the number of passes run,
// including the final pass with no change.
func propagate(ctx context.Context, cfg *config, snap *snapshot.Snapshot, data *static.Data, reached map[string]bool) (int, error) {
	regionNames := data.RegionNames()
	for pass := 1; ; pass++ {
		if pass > cfg.maxPasses {
			return pass - 1, oops.Code(CodePropagationLimit).
				With("max_passes", cfg.maxPasses).
				With("regions_reached", len(reached)).
				Errorf("reachability did not converge within %d passes", cfg.maxPasses)
		}
		if err := ctx.Err(); err != nil {
			return pass - 1, oops.Code(CodePropagationLimit).
				With("pass", pass).
				Wrapf(err, "reachability propagation cancelled")
		}

		frozen := make(map[string]snapshot.RegionState, len(regionNames))
		for _, name := range regionNames {
			if reached[name] {
				frozen[name] = snapshot.RegionReachable
			} else {
				frozen[name] = snapshot.RegionUnknown
			}
		}
		v := view.Build(snap, data, cfg.viewOptions(frozen)...)

		changed := 0
		for _, name := range regionNames {
			if !frozen[name].Reached() {
				continue
			}
			region, _ := data.Region(name)
			for _, exit := range region.Exits {
				if reached[exit.ConnectedRegion] {
					continue
				}
				// Disconnected destinations are reported by the final exit pass.
				if _, ok := data.Region(exit.ConnectedRegion); !ok {
					continue
				}
				t, err := v.EntranceAccessible(exit)
				if err != nil || t != eval.True {
					continue
				}
				reached[exit.ConnectedRegion] = true
				changed++
			}
		}
		cfg.logger.Debug("propagation pass",
			"pass", pass,
			"regions_added", changed,
			"regions_reached", len(reached),
		)
		if changed == 0 {
			return pass, nil
		}
	}
}

// finalStates maps every region to Reachable, Checked or Unreachable.
func finalStates(snap *snapshot.Snapshot, data *static.Data, reached map[string]bool) map[string]snapshot.RegionState {
	states := make(map[string]snapshot.RegionState, len(data.Regions))
	for name, region := range data.Regions {
		switch {
		case !reached[name]:
			states[name] = snapshot.RegionUnreachable
		case snap.RegionState(name) == snapshot.RegionChecked || allChecked(snap, region):
			states[name] = snapshot.RegionChecked
		default:
			states[name] = snapshot.RegionReachable
		}
	}
	return states
}

func allChecked(snap *snapshot.Snapshot, region *static.Region) bool {
	if len(region.Locations) == 0 {
		return false
	}
	for _, loc := range region.Locations {
		if !snap.IsChecked(loc) {
			return false
		}
	}
	return true
}

// classify fills Locations, Exits, Unknown and Faults from v.
func (r *Result) classify(ctx context.Context, cfg *config, v *view.View) error {
	data, snap := v.Static(), v.Snapshot()

	names := data.LocationNames()
	outcomes, err := EvaluateLocations(ctx, v, names, cfg.workers)
	if err != nil {
		return oops.Code(CodePropagationLimit).Wrapf(err, "location evaluation cancelled")
	}
	for i, name := range names {
		o := outcomes[i]
		if o.Err != nil {
			r.addFault(ctx, cfg, FaultLocation, name, o.Err)
			r.Unknown = append(r.Unknown, name)
			continue
		}
		if o.Accessible == eval.Unknown {
			r.Unknown = append(r.Unknown, name)
			continue
		}
		r.Locations[name] = o.Accessible == eval.True && !snap.IsChecked(name)
	}

	for _, regionName := range data.RegionNames() {
		region, _ := data.Region(regionName)
		for _, exit := range region.Exits {
			t, err := v.EntranceAccessible(exit)
			if err == nil {
				if _, ok := data.Region(exit.ConnectedRegion); !ok {
					err = eval.ErrMissingStaticData("region", exit.ConnectedRegion)
				}
			}
			if err != nil {
				r.addFault(ctx, cfg, FaultExit, exit.Key(), err)
				continue
			}
			r.Exits[exit.Key()] = t == eval.True
		}
	}
	return nil
}

func (r *Result) addFault(ctx context.Context, cfg *config, kind, name string, err error) {
	f := Fault{Kind: kind, Name: name, Err: err}
	r.Faults = append(r.Faults, f)
	recordFault(kind, f.Code())
	errutil.LogErrorContext(ctx, cfg.logger, "rule evaluation fault", err, kind, name)
}
