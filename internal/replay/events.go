// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"maps"

	"github.com/samber/oops"

	"github.com/holomush/reachlogic/internal/logic/snapshot"
)

// Event types in a playthrough log.
const (
	EventStateUpdate     = "state_update"
	EventCheckedLocation = "checked_location"
)

// CodeInvalidEvent marks an unreadable or inconsistent playthrough line.
const CodeInvalidEvent = "INVALID_EVENT"

// maxLineSize bounds a single playthrough line.
const maxLineSize = 4 << 20

// Event is one line of a playthrough log.
//
// A state_update sets absolute inventory counts, sets flags and merges
// settings. A checked_location marks Location checked. Accessible is the
// accessible location set the tracker recorded after the event; nil means
// nothing was recorded and the step is not verified. Generation, when
// non-zero, is the snapshot generation the tracker computed that set from.
type Event struct {
	Type       string         `json:"type"`
	Inventory  map[string]int `json:"inventory,omitempty"`
	Flags      []string       `json:"flags,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
	Location   string         `json:"location,omitempty"`
	Generation uint64         `json:"generation,omitempty"`
	Accessible []string       `json:"accessible_locations"`
}

func (e Event) validate() error {
	switch e.Type {
	case EventStateUpdate:
		return nil
	case EventCheckedLocation:
		if e.Location == "" {
			return oops.Code(CodeInvalidEvent).Errorf("%s event has no location", e.Type)
		}
		return nil
	}
	return oops.Code(CodeInvalidEvent).With("type", e.Type).Errorf("unknown event type %q", e.Type)
}

// Apply returns the snapshot that follows s after e, one generation later.
func (e Event) Apply(s *snapshot.Snapshot) *snapshot.Snapshot {
	c := s.Clone()
	switch e.Type {
	case EventStateUpdate:
		for item, n := range e.Inventory {
			c.Inventory[item] = max(n, 0)
		}
		for _, f := range e.Flags {
			c.Flags[f] = struct{}{}
		}
		maps.Copy(c.Settings, e.Settings)
	case EventCheckedLocation:
		c.CheckedLocations[e.Location] = struct{}{}
	}
	return c
}

// ReadEvents decodes a JSON-lines playthrough log. Blank lines are
// skipped.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, oops.Code(CodeInvalidEvent).With("line", line).Wrapf(err, "decoding event on line %d", line)
		}
		if err := ev.validate(); err != nil {
			return nil, oops.With("line", line).Wrap(err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, oops.Code(CodeInvalidEvent).With("line", line).Wrapf(err, "reading playthrough")
	}
	return events, nil
}
