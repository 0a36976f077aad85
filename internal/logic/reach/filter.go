// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reach

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Filter selects region and location names by glob pattern. A Filter with
// no patterns matches everything.
type Filter struct {
	patterns []glob.Glob
}

// NewFilter compiles patterns such as "Hyrule Castle*" or "*Chest".
func NewFilter(patterns ...string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("INVALID_FILTER").With("pattern", p).Wrapf(err, "invalid filter pattern %q", p)
		}
		f.patterns = append(f.patterns, g)
	}
	return f, nil
}

// Match reports whether name matches any pattern.
func (f *Filter) Match(name string) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	for _, g := range f.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Names returns the matching names, preserving order.
func (f *Filter) Names(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out
}
