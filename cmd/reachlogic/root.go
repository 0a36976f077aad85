// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/holomush/reachlogic/internal/config"
	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/helpers"
	"github.com/holomush/reachlogic/internal/logic/reach"
	"github.com/holomush/reachlogic/internal/observability"
)

// app carries state shared by subcommands once the config is loaded.
type app struct {
	configFile string
	metrics    bool
	cfg        *config.Config
	logger     *slog.Logger
	registry   *helpers.Registry
	evaluator  *eval.Evaluator
}

// NewRootCmd creates the root command for the reachlogic CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "reachlogic",
		Short: "Evaluate randomizer access rules against tracker state",
		Long: `reachlogic evaluates the access rules of a randomized game's logic
graph against the current tracker state and reports which regions are
reachable and which locations can be checked.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.metrics {
				return nil
			}
			return observability.WriteMetrics(cmd.ErrOrStderr(), prometheus.DefaultGatherer, observability.EngineMetricPrefix)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/reachlogic/config.yaml when present)")
	cmd.PersistentFlags().BoolVar(&a.metrics, "metrics", false, "print engine metrics to stderr after the command")
	config.BindFlags(cmd.PersistentFlags(), config.Default())

	cmd.AddCommand(NewEvaluateCmd(a))
	cmd.AddCommand(NewReachCmd(a))
	cmd.AddCommand(NewVerifyCmd(a))
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Resolve(a.configFile), cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := cfg.Logger("reachlogic", version, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.registry = cfg, logger, reg
	a.evaluator = cfg.Evaluator(logger)
	return nil
}

func (a *app) reachOptions() []reach.Option {
	return a.cfg.ReachOptions(a.logger, a.registry, a.evaluator)
}
