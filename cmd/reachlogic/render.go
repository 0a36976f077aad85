// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"github.com/holomush/reachlogic/internal/logic/reach"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
)

// Location classifications shown by the reach command.
const (
	stateAccessible   = "accessible"
	stateInaccessible = "inaccessible"
	stateChecked      = "checked"
	stateUnknown      = "unknown"
)

// styles renders states for one output writer.
type styles struct {
	heading      lipgloss.Style
	reachable    lipgloss.Style
	unreachable  lipgloss.Style
	checked      lipgloss.Style
	unknown      lipgloss.Style
	inaccessible lipgloss.Style
	detail       lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		heading:      r.NewStyle().Bold(true).Underline(true),
		reachable:    r.NewStyle().Foreground(lipgloss.Color("34")),
		unreachable:  r.NewStyle().Foreground(lipgloss.Color("243")),
		checked:      r.NewStyle().Foreground(lipgloss.Color("39")),
		unknown:      r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		inaccessible: r.NewStyle().Foreground(lipgloss.Color("160")),
		detail:       r.NewStyle().Faint(true),
	}
}

func (s styles) region(state snapshot.RegionState) lipgloss.Style {
	switch state {
	case snapshot.RegionReachable:
		return s.reachable
	case snapshot.RegionChecked:
		return s.checked
	case snapshot.RegionUnreachable:
		return s.unreachable
	}
	return s.unknown
}

func (s styles) location(state string) lipgloss.Style {
	switch state {
	case stateAccessible:
		return s.reachable
	case stateChecked:
		return s.checked
	case stateInaccessible:
		return s.inaccessible
	}
	return s.unknown
}

// locationRow is one classified location.
type locationRow struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// reachReport is the reach command's output.
type reachReport struct {
	Game       string                          `json:"game"`
	Generation uint64                          `json:"generation"`
	Passes     int                             `json:"passes"`
	Regions    map[string]snapshot.RegionState `json:"regions"`
	Locations  []locationRow                   `json:"locations"`
	Faults     []locationRow                   `json:"faults,omitempty"`
}

func newReachReport(game string, snap *snapshot.Snapshot, res *reach.Result, filter *reach.Filter) *reachReport {
	out := &reachReport{
		Game:       game,
		Generation: res.Generation,
		Passes:     res.Passes,
		Regions:    make(map[string]snapshot.RegionState),
	}
	for name, state := range res.Regions {
		if filter.Match(name) {
			out.Regions[name] = state
		}
	}

	faults := make(map[string]reach.Fault)
	for _, f := range res.Faults {
		if f.Kind == reach.FaultLocation {
			faults[f.Name] = f
		} else if filter.Match(f.Name) {
			out.Faults = append(out.Faults, locationRow{Name: f.Name, State: f.Kind, Code: f.Code(), Error: f.Err.Error()})
		}
	}

	names := make([]string, 0, len(res.Locations)+len(res.Unknown))
	for name := range res.Locations {
		names = append(names, name)
	}
	names = append(names, res.Unknown...)
	slices.Sort(names)

	for _, name := range filter.Names(names) {
		row := locationRow{Name: name}
		accessible, known := res.Locations[name]
		switch {
		case !known:
			row.State = stateUnknown
			if f, ok := faults[name]; ok {
				row.Code, row.Error = f.Code(), f.Err.Error()
			}
		case snap.IsChecked(name):
			row.State = stateChecked
		case accessible:
			row.State = stateAccessible
		default:
			row.State = stateInaccessible
		}
		out.Locations = append(out.Locations, row)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *reachReport) render(w io.Writer) {
	s := newStyles(w)
	fmt.Fprintf(w, "%s %s\n", s.heading.Render(r.Game), s.detail.Render(fmt.Sprintf("generation %d, %d passes", r.Generation, r.Passes)))

	fmt.Fprintln(w, s.heading.Render("Regions"))
	regions := make([]string, 0, len(r.Regions))
	for name := range r.Regions {
		regions = append(regions, name)
	}
	slices.Sort(regions)
	for _, name := range regions {
		state := r.Regions[name]
		fmt.Fprintf(w, "  %s  %s\n", s.region(state).Render(fmt.Sprintf("%-12s", state)), name)
	}

	fmt.Fprintln(w, s.heading.Render("Locations"))
	for _, row := range r.Locations {
		line := fmt.Sprintf("  %s  %s", s.location(row.State).Render(fmt.Sprintf("%-12s", row.State)), row.Name)
		if row.Code != "" {
			line += " " + s.detail.Render("("+row.Code+")")
		}
		fmt.Fprintln(w, line)
	}

	if len(r.Faults) > 0 {
		fmt.Fprintln(w, s.heading.Render("Faults"))
		for _, row := range r.Faults {
			fmt.Fprintf(w, "  %s  %s %s\n", s.unknown.Render(fmt.Sprintf("%-12s", row.State)), row.Name, s.detail.Render("("+row.Code+")"))
		}
	}
}
