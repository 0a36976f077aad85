// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package helpers

import (
	"sort"
	"sync"

	"github.com/samber/oops"
)

// Resolution is the outcome of a registry lookup.
type Resolution struct {
	Func Func
	// Name is the helper name after alias resolution.
	Name string
	// Game is the table that served the helper; empty for the generic
	// table.
	Game      string
	PlayerArg int
}

// Registry maps game ids to helper tables with a mandatory generic
// fallback. It is safe for concurrent lookups once registration is done;
// registration itself is also synchronized.
type Registry struct {
	mu      sync.RWMutex
	generic *Table
	games   map[string]*Table
	aliases map[string]*AliasSet
}

// NewRegistry creates a registry backed by the generic table.
func NewRegistry(generic *Table) *Registry {
	if generic == nil {
		generic = NewTable("")
	}
	return &Registry{
		generic: generic,
		games:   make(map[string]*Table),
		aliases: make(map[string]*AliasSet),
	}
}

// Register adds a game table. Registering a second table for the same game
// overlays its helpers on the first.
func (r *Registry) Register(t *Table) error {
	if t == nil || t.Game == "" {
		return oops.Code("INVALID_HELPER_TABLE").Errorf("helper table must name a game")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.games[t.Game]
	if !ok {
		existing = NewTable(t.Game)
		r.games[t.Game] = existing
	}
	for name, fn := range t.funcs {
		existing.funcs[name] = fn
	}
	return nil
}

// RegisterAliases attaches an alias set to game. An empty game applies the
// set to every game after the game's own aliases.
func (r *Registry) RegisterAliases(game string, set *AliasSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.aliases[game]; ok {
		existing.entries = append(existing.entries, set.entries...)
		return
	}
	c := NewAliasSet()
	c.entries = append(c.entries, set.entries...)
	r.aliases[game] = c
}

// Lookup resolves name for game under the dataset version: aliases first,
// then the game table, then the generic table.
func (r *Registry) Lookup(game, version, name string) (Resolution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := Resolution{Name: name, PlayerArg: NoPlayerArg}
	if a, ok := r.aliases[game].Resolve(name, version); ok {
		res.Name, res.PlayerArg = a.To, a.PlayerArg
	} else if a, ok := r.aliases[""].Resolve(name, version); ok {
		res.Name, res.PlayerArg = a.To, a.PlayerArg
	}

	if fn, ok := r.games[game].Get(res.Name); ok {
		res.Func, res.Game = fn, game
		return res, true
	}
	if fn, ok := r.generic.Get(res.Name); ok {
		res.Func = fn
		return res, true
	}
	return Resolution{}, false
}

// Override returns a game-specific helper without consulting aliases or
// the generic table. It is used for built-in query overrides such as
// progressive item counting.
func (r *Registry) Override(game, name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games[game].Get(name)
}

// Games returns the ids of games with a registered table.
func (r *Registry) Games() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	games := make([]string, 0, len(r.games))
	for g := range r.games {
		games = append(games, g)
	}
	sort.Strings(games)
	return games
}

// Helpers lists the helper names available to game, including the generic
// table.
func (r *Registry) Helpers(game string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, n := range r.generic.Names() {
		seen[n] = struct{}{}
	}
	if t, ok := r.games[game]; ok {
		for _, n := range t.Names() {
			seen[n] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry with the generic table, the built-in game
// tables and their aliases.
func Default() *Registry {
	r := NewRegistry(Generic())
	if err := r.Register(LTTP()); err != nil {
		panic(err)
	}
	r.RegisterAliases(GameLTTP, LTTPAliases())
	r.RegisterAliases("", GenericAliases())
	return r
}
