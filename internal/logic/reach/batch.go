// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reach

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/view"
)

// Outcome is the accessibility of one location. Err is set when the
// location's rule faulted; Accessible is then Unknown.
type Outcome struct {
	Accessible eval.Tri
	Err        error
}

// EvaluateLocations evaluates the named locations against v using up to
// workers goroutines. workers <= 1 evaluates sequentially. Per-location
// faults are reported in the outcomes; only cancellation of ctx returns an
// error.
func EvaluateLocations(ctx context.Context, v *view.View, names []string, workers int) ([]Outcome, error) {
	out := make([]Outcome, len(names))
	if workers <= 1 {
		for i, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = evaluateLocation(v, name)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = evaluateLocation(v, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func evaluateLocation(v *view.View, name string) Outcome {
	t, err := v.LocationAccessible(name)
	if err != nil {
		return Outcome{Accessible: eval.Unknown, Err: err}
	}
	return Outcome{Accessible: t}
}
