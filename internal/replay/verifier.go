// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package replay re-runs a recorded playthrough through the reachability
// propagator and reports where the computed accessible sets differ from the
// recorded ones.
package replay

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/reachlogic/internal/logic/reach"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
)

// CodeGenerationMismatch marks an event whose recorded generation differs
// from the generation reached by replaying the log up to it. The log is
// missing events or out of order.
const CodeGenerationMismatch = "GENERATION_MISMATCH"

// Step is the verification outcome of one event.
type Step struct {
	Index      int      `json:"index"`
	Type       string   `json:"type"`
	Location   string   `json:"location,omitempty"`
	Generation uint64   `json:"generation"`
	Verified   bool     `json:"verified"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
	Unknown    []string `json:"unknown,omitempty"`
}

// Mismatched reports whether the computed set differs from the recorded one.
func (s Step) Mismatched() bool { return len(s.Missing) > 0 || len(s.Extra) > 0 }

// Report is the outcome of one replay run.
type Report struct {
	RunID      ulid.ULID `json:"run_id"`
	Game       string    `json:"game"`
	Steps      []Step    `json:"steps"`
	Mismatches int       `json:"mismatches"`
}

// OK reports whether every verified step matched.
func (r *Report) OK() bool { return r.Mismatches == 0 }

// Verifier replays playthroughs against one dataset.
type Verifier struct {
	data      *static.Data
	runID     ulid.ULID
	reachOpts []reach.Option
	logger    *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRunID fixes the run id. Defaults to a fresh ULID.
func WithRunID(id ulid.ULID) Option {
	return func(v *Verifier) { v.runID = id }
}

// WithReachOptions passes options to every reach.Compute call.
func WithReachOptions(opts ...reach.Option) Option {
	return func(v *Verifier) { v.reachOpts = append(v.reachOpts, opts...) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

// NewVerifier creates a Verifier for data.
func NewVerifier(data *static.Data, opts ...Option) *Verifier {
	v := &Verifier{data: data}
	for _, opt := range opts {
		opt(v)
	}
	if v.runID.IsZero() {
		v.runID = ulid.Make()
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// RunID returns the id stamped on reports.
func (v *Verifier) RunID() ulid.ULID { return v.runID }

// VerifyReader reads a JSON-lines playthrough from r and verifies it.
func (v *Verifier) VerifyReader(ctx context.Context, initial *snapshot.Snapshot, r io.Reader) (*Report, error) {
	events, err := ReadEvents(r)
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, initial, events)
}

// Verify applies events to initial in order and checks every recorded
// accessible set. Propagation errors abort the run.
func (v *Verifier) Verify(ctx context.Context, initial *snapshot.Snapshot, events []Event) (*Report, error) {
	logger := v.logger.With("run_id", v.runID.String())
	report := &Report{RunID: v.runID, Game: v.data.Game, Steps: make([]Step, 0, len(events))}
	opts := append([]reach.Option{reach.WithLogger(logger)}, v.reachOpts...)

	s := initial
	for i, ev := range events {
		if err := ev.validate(); err != nil {
			return nil, oops.With("step", i+1).Wrap(err)
		}
		s = ev.Apply(s)
		step := Step{Index: i + 1, Type: ev.Type, Location: ev.Location, Generation: s.Generation}
		if ev.Generation != 0 && ev.Generation != s.Generation {
			return nil, oops.Code(CodeGenerationMismatch).
				With("step", step.Index).
				With("recorded", ev.Generation).
				With("replayed", s.Generation).
				Errorf("step %d was recorded at generation %d but replays at generation %d", step.Index, ev.Generation, s.Generation)
		}
		if ev.Accessible == nil {
			report.Steps = append(report.Steps, step)
			continue
		}

		res, err := reach.Compute(ctx, s, v.data, opts...)
		if err != nil {
			return nil, oops.With("step", step.Index).Wrap(err)
		}
		step.Verified = true
		step.Missing, step.Extra = diff(ev.Accessible, res.Accessible())
		step.Unknown = res.Unknown
		if step.Mismatched() {
			report.Mismatches++
			logger.Warn("accessible set mismatch",
				"step", step.Index,
				"type", step.Type,
				"missing", step.Missing,
				"extra", step.Extra,
			)
		}
		report.Steps = append(report.Steps, step)
	}

	logger.Info("replay verified",
		"game", v.data.Game,
		"steps", len(report.Steps),
		"mismatches", report.Mismatches,
	)
	return report, nil
}

// diff returns the sorted names only in recorded (missing) and only in
// computed (extra).
func diff(recorded, computed []string) (missing, extra []string) {
	want := make(map[string]bool, len(recorded))
	for _, name := range recorded {
		want[name] = true
	}
	got := make(map[string]bool, len(computed))
	for _, name := range computed {
		got[name] = true
		if !want[name] {
			extra = append(extra, name)
		}
	}
	for name := range want {
		if !got[name] {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return missing, extra
}
