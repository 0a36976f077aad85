// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/reach"
	"github.com/holomush/reachlogic/internal/logic/rule"
	"github.com/holomush/reachlogic/internal/logic/static"
	"github.com/holomush/reachlogic/internal/logic/view"
)

// NewEvaluateCmd creates the evaluate subcommand.
func NewEvaluateCmd(a *app) *cobra.Command {
	var (
		in        inputs
		location  string
		propagate bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate [rule]",
		Short: "Evaluate a rule or a location's accessibility",
		Long: `Evaluate a rule written in text form, for example

  reachlogic evaluate -d alttp.yaml -s state.json 'has("Hookshot") and can_lift_rocks()'

With --location and no rule, report the location's accessibility. With
--location and a rule, evaluate the rule with the location bound as
"location". Region states come from a propagation pass unless
--propagate=false, in which case the snapshot's cache is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && location == "" {
				return oops.Code(eval.CodeMalformedRule).Errorf("nothing to evaluate: pass a rule or --location")
			}
			data, snap, err := in.load()
			if err != nil {
				return err
			}
			if propagate {
				res, err := reach.Compute(cmd.Context(), snap, data, a.reachOptions()...)
				if err != nil {
					return err
				}
				snap = res.Annotate(snap)
			}

			v := view.Build(snap, data,
				view.WithRegistry(a.registry),
				view.WithEvaluator(a.evaluator),
				view.WithLogger(a.logger),
			)

			var result any
			if len(args) == 0 {
				t, err := v.LocationAccessible(location)
				if err != nil {
					return err
				}
				result = t.Value()
			} else {
				result, err = evaluateRule(v, data, args[0], location)
				if err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"result": result})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(result))
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVarP(&location, "location", "l", "", "location to evaluate or bind as \"location\"")
	cmd.Flags().BoolVar(&propagate, "propagate", true, "compute region states before evaluating")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write JSON")
	return cmd
}

func evaluateRule(v *view.View, data *static.Data, text, location string) (any, error) {
	node, err := rule.Parse(text)
	if err != nil {
		return nil, err
	}
	contextName := "cli"
	if location != "" {
		loc, ok := data.Location(location)
		if !ok {
			return nil, eval.ErrMissingStaticData("location", location)
		}
		v = v.With(map[string]any{"location": loc})
		contextName = location
	}
	return v.Evaluator().Value(node, v, contextName)
}

// formatValue prints undefined as "undefined" and dataset objects by name.
func formatValue(v any) string {
	if v == nil {
		return "undefined"
	}
	if name, ok := eval.NameOf(v); ok {
		if _, isString := v.(string); !isString {
			return name
		}
	}
	return fmt.Sprint(v)
}
