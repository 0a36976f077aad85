// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package helpers

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// NoPlayerArg marks an alias whose call sites carry no player argument.
const NoPlayerArg = -1

// Alias maps a call target emitted by the upstream rule compiler onto a
// registered helper.
type Alias struct {
	From string
	To   string
	// PlayerArg is the index of the interleaved player argument dropped
	// from state.<From>(...) calls, or NoPlayerArg.
	PlayerArg int
	// Constraint limits the alias to datasets whose generator version
	// satisfies it. Empty means every version.
	Constraint string

	constraint *semver.Constraints
}

// AliasSet is an ordered list of aliases. The first entry whose name and
// constraint match wins.
type AliasSet struct {
	entries []Alias
}

// NewAliasSet creates an empty set.
func NewAliasSet() *AliasSet { return &AliasSet{} }

// Add appends an alias. constraint uses Masterminds semver syntax, e.g.
// ">= 0.4.0, < 0.6.0".
func (s *AliasSet) Add(from, to string, playerArg int, constraint string) error {
	a := Alias{From: from, To: to, PlayerArg: playerArg, Constraint: constraint}
	if constraint != "" {
		c, err := semver.NewConstraint(constraint)
		if err != nil {
			return oops.Code("INVALID_ALIAS").
				With("alias", from).
				With("constraint", constraint).
				Wrapf(err, "invalid version constraint for alias %q", from)
		}
		a.constraint = c
	}
	s.entries = append(s.entries, a)
	return nil
}

// MustAdd is Add for static tables; it panics on an invalid constraint.
func (s *AliasSet) MustAdd(from, to string, playerArg int, constraint string) *AliasSet {
	if err := s.Add(from, to, playerArg, constraint); err != nil {
		panic(err)
	}
	return s
}

// Resolve finds the alias for name under the given dataset version. An
// empty or unparsable version matches unconstrained entries only.
func (s *AliasSet) Resolve(name, version string) (Alias, bool) {
	if s == nil {
		return Alias{}, false
	}
	var v *semver.Version
	if version != "" {
		if parsed, err := semver.NewVersion(version); err == nil {
			v = parsed
		}
	}
	for _, a := range s.entries {
		if a.From != name {
			continue
		}
		if a.constraint == nil {
			return a, true
		}
		if v != nil && a.constraint.Check(v) {
			return a, true
		}
	}
	return Alias{}, false
}

// Entries returns a copy of the aliases in resolution order.
func (s *AliasSet) Entries() []Alias {
	out := make([]Alias, len(s.entries))
	copy(out, s.entries)
	return out
}
