// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/reachlogic/internal/replay"
)

// CodeReplayMismatch is returned when a replay finds differing steps.
const CodeReplayMismatch = "REPLAY_MISMATCH"

// NewVerifyCmd creates the verify subcommand.
func NewVerifyCmd(a *app) *cobra.Command {
	var (
		in          inputs
		playthrough string
		runID       string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a recorded playthrough and compare accessible sets",
		Long: `Replay a JSON-lines playthrough log of state_update and
checked_location events, starting from --snapshot (or an empty state),
and compare the computed accessible locations with the recorded ones.
Exits non-zero when any step differs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, snap, err := in.load()
			if err != nil {
				return err
			}

			opts := []replay.Option{
				replay.WithLogger(a.logger),
				replay.WithReachOptions(a.reachOptions()...),
			}
			if runID != "" {
				id, err := ulid.ParseStrict(runID)
				if err != nil {
					return oops.Code("INVALID_RUN_ID").With("run_id", runID).Wrapf(err, "invalid run id")
				}
				opts = append(opts, replay.WithRunID(id))
			}

			f, err := os.Open(filepath.Clean(playthrough))
			if err != nil {
				return oops.With("path", playthrough).Wrapf(err, "opening playthrough")
			}
			defer func() { _ = f.Close() }()

			report, err := replay.NewVerifier(data, opts...).VerifyReader(cmd.Context(), snap, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				renderReport(cmd, report)
			}
			if !report.OK() {
				return oops.Code(CodeReplayMismatch).
					With("run_id", report.RunID.String()).
					With("mismatches", report.Mismatches).
					Errorf("%d of %d steps differ", report.Mismatches, len(report.Steps))
			}
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVarP(&playthrough, "playthrough", "p", "", "playthrough log (JSON lines)")
	cmd.Flags().StringVar(&runID, "run-id", "", "ULID to stamp on the report (default: generated)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the report as JSON")
	_ = cmd.MarkFlagRequired("playthrough")
	return cmd
}

func renderReport(cmd *cobra.Command, report *replay.Report) {
	w := cmd.OutOrStdout()
	s := newStyles(w)
	fmt.Fprintf(w, "%s %s\n", s.heading.Render("Replay "+report.RunID.String()), s.detail.Render(report.Game))
	for _, step := range report.Steps {
		switch {
		case !step.Verified:
			fmt.Fprintf(w, "  %s  step %d %s\n", s.detail.Render(fmt.Sprintf("%-8s", "skipped")), step.Index, step.Type)
		case step.Mismatched():
			fmt.Fprintf(w, "  %s  step %d %s\n", s.inaccessible.Render(fmt.Sprintf("%-8s", "mismatch")), step.Index, step.Type)
			for _, name := range step.Missing {
				fmt.Fprintf(w, "      - %s\n", name)
			}
			for _, name := range step.Extra {
				fmt.Fprintf(w, "      + %s\n", name)
			}
		default:
			fmt.Fprintf(w, "  %s  step %d %s\n", s.reachable.Render(fmt.Sprintf("%-8s", "ok")), step.Index, step.Type)
		}
		for _, name := range step.Unknown {
			fmt.Fprintf(w, "      ? %s\n", s.unknown.Render(name))
		}
	}
	fmt.Fprintf(w, "%d mismatched steps\n", report.Mismatches)
}
