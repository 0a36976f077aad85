// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package eval

// Tri is a three-valued truth value. The zero value is Unknown, which
// means "not yet proven false" and is never the same as False.
type Tri int8

// Tri constants.
const (
	Unknown Tri = iota
	False
	True
)

// TriOf lifts a bool.
func TriOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// And is Kleene conjunction: False dominates, then Unknown.
func (t Tri) And(o Tri) Tri {
	if t == False || o == False {
		return False
	}
	if t == Unknown || o == Unknown {
		return Unknown
	}
	return True
}

// Value converts t into a rule value: true, false, or nil for Unknown.
func (t Tri) Value() any {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return nil
	}
}

// HelperCall is a helper invocation with evaluated arguments.
type HelperCall struct {
	Name string
	Args []any
	// Method is set for state.<name>(...) calls, whose argument lists
	// interleave the player slot.
	Method bool
}

// Interface is the read-only evaluation context a rule runs against.
// Implementations must be safe for concurrent use by multiple evaluations
// over the same snapshot.
//
// Query methods are total: missing data yields zero values or Unknown.
// ResolveName and ResolveAttribute report false for undefined values.
type Interface interface {
	HasItem(name string, count int) bool
	CountItem(name string) int
	CountGroup(group string) int
	HasFlag(name string) bool
	Setting(name string) (any, bool)

	RegionReachable(region string) (Tri, error)
	// LocationAccessible accepts a location name or a location value.
	LocationAccessible(location any) (Tri, error)
	ExitAccessible(exit string) (Tri, error)

	ResolveName(name string) (any, bool)
	ResolveAttribute(base any, field string) (any, bool)
	ExecuteHelper(call HelperCall) (any, error)
}
