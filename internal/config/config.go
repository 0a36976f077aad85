// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads engine configuration from defaults, an optional
// YAML file and command-line flags, in that order of precedence.
package config

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/reachlogic/internal/logging"
	"github.com/holomush/reachlogic/internal/logic/eval"
	"github.com/holomush/reachlogic/internal/logic/helpers"
	"github.com/holomush/reachlogic/internal/logic/reach"
)

// CodeInvalidConfig marks configuration that fails to load or validate.
const CodeInvalidConfig = "INVALID_CONFIG"

// Config is the full engine configuration.
type Config struct {
	Log     Log     `koanf:"log"`
	Engine  Engine  `koanf:"engine"`
	Helpers Helpers `koanf:"helpers"`
}

// Log configures the process logger.
type Log struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Engine configures rule evaluation and propagation.
type Engine struct {
	MaxDepth       int      `koanf:"max_depth"`
	MaxPasses      int      `koanf:"max_passes"`
	Workers        int      `koanf:"workers"`
	LenientHelpers bool     `koanf:"lenient_helpers"`
	StartRegions   []string `koanf:"start_regions"`
}

// Helpers lists extra helper tables.
type Helpers struct {
	Scripts []Script `koanf:"scripts"`
}

// Script is a Lua helper table for one game. Relative paths resolve
// against the directory of the config file.
type Script struct {
	Game    string        `koanf:"game"`
	Path    string        `koanf:"path"`
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{Format: logging.FormatText, Level: "info"},
		Engine: Engine{
			MaxDepth:  eval.DefaultMaxDepth,
			MaxPasses: reach.DefaultMaxPasses,
			Workers:   1,
		},
	}
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-format":      "log.format",
	"log-level":       "log.level",
	"max-depth":       "engine.max_depth",
	"max-passes":      "engine.max_passes",
	"workers":         "engine.workers",
	"lenient-helpers": "engine.lenient_helpers",
	"start-region":    "engine.start_regions",
}

// BindFlags registers the config flags on fs with defaults from d.
func BindFlags(fs *pflag.FlagSet, d Config) {
	fs.String("log-format", d.Log.Format, "log format: json or text")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.Int("max-depth", d.Engine.MaxDepth, "maximum rule nesting depth")
	fs.Int("max-passes", d.Engine.MaxPasses, "maximum propagation passes")
	fs.Int("workers", d.Engine.Workers, "parallel location evaluators")
	fs.Bool("lenient-helpers", d.Engine.LenientHelpers, "treat unknown helpers as undefined instead of faulting")
	fs.StringSlice("start-region", d.Engine.StartRegions, "start region (repeatable); overrides the dataset")
}

// Load reads path (when non-empty) over the defaults, then applies the
// flags of fs that were set explicitly. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalidConfig).With("path", path).Wrapf(err, "loading config file")
		}
	}
	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalidConfig).Wrapf(err, "loading flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code(CodeInvalidConfig).Wrapf(err, "decoding config")
	}
	if path != "" {
		dir := filepath.Dir(path)
		for i, s := range cfg.Helpers.Scripts {
			if s.Path != "" && !filepath.IsAbs(s.Path) {
				cfg.Helpers.Scripts[i].Path = filepath.Join(dir, s.Path)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(key string, value any, format string, args ...any) error {
		return oops.Code(CodeInvalidConfig).With("key", key).With("value", value).Errorf(format, args...)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, "invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		return invalid("log.format", c.Log.Format, "log.format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.Log.Format)
	}
	if c.Engine.MaxDepth <= 0 {
		return invalid("engine.max_depth", c.Engine.MaxDepth, "engine.max_depth must be positive")
	}
	if c.Engine.MaxPasses <= 0 {
		return invalid("engine.max_passes", c.Engine.MaxPasses, "engine.max_passes must be positive")
	}
	if c.Engine.Workers < 0 {
		return invalid("engine.workers", c.Engine.Workers, "engine.workers must not be negative")
	}
	for i, s := range c.Helpers.Scripts {
		if s.Game == "" || s.Path == "" {
			return invalid("helpers.scripts", i, "helpers.scripts[%d] needs both game and path", i)
		}
	}
	return nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(service, version string, w io.Writer) (*slog.Logger, error) {
	return logging.Setup(logging.Options{
		Service: service,
		Version: version,
		Format:  c.Log.Format,
		Level:   c.Log.Level,
		Writer:  w,
	})
}

// Evaluator builds the rule evaluator.
func (c *Config) Evaluator(logger *slog.Logger) *eval.Evaluator {
	return eval.New(
		eval.WithMaxDepth(c.Engine.MaxDepth),
		eval.WithLenientHelpers(c.Engine.LenientHelpers),
		eval.WithLogger(logger),
	)
}

// Registry builds the default helper registry overlaid with every
// configured Lua script.
func (c *Config) Registry() (*helpers.Registry, error) {
	reg := helpers.Default()
	for _, s := range c.Helpers.Scripts {
		var opts []helpers.LuaOption
		if s.Timeout > 0 {
			opts = append(opts, helpers.WithLuaTimeout(s.Timeout))
		}
		table, err := helpers.LoadLuaFile(s.Game, s.Path, opts...)
		if err != nil {
			return nil, oops.With("game", s.Game).Wrap(err)
		}
		if err := reg.Register(table); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ReachOptions builds the propagation options shared by every command.
func (c *Config) ReachOptions(logger *slog.Logger, reg *helpers.Registry, ev *eval.Evaluator) []reach.Option {
	opts := []reach.Option{
		reach.WithLogger(logger),
		reach.WithEvaluator(ev),
		reach.WithRegistry(reg),
		reach.WithMaxPasses(c.Engine.MaxPasses),
		reach.WithWorkers(c.Engine.Workers),
	}
	if len(c.Engine.StartRegions) > 0 {
		opts = append(opts, reach.WithStartRegions(c.Engine.StartRegions...))
	}
	return opts
}
