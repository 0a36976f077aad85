// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/reachlogic/internal/logic/reach"
)

// NewReachCmd creates the reach subcommand.
func NewReachCmd(a *app) *cobra.Command {
	var (
		in      inputs
		filters []string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "reach",
		Short: "Compute region reachability and location accessibility",
		Long: `Propagate reachability from the start regions through every exit and
classify each location as accessible, inaccessible, checked or unknown.
Locations whose rules fault are listed as unknown with the error code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := reach.NewFilter(filters...)
			if err != nil {
				return err
			}
			data, snap, err := in.load()
			if err != nil {
				return err
			}
			res, err := reach.Compute(cmd.Context(), snap, data, a.reachOptions()...)
			if err != nil {
				return err
			}

			report := newReachReport(data.Game, snap, res, filter)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			report.render(cmd.OutOrStdout())
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "glob pattern selecting regions and locations (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write JSON instead of styled text")
	return cmd
}
