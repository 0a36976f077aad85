// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package eval

import (
	"math"
	"reflect"

	"github.com/holomush/reachlogic/internal/logic/rule"
	"github.com/holomush/reachlogic/internal/logic/static"
)

// Truthy reports the truth of a rule value. Undefined (nil), false, zero
// numbers and empty strings or collections are false; everything else is
// true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case Tri:
		return val == True
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case map[string]int:
		return len(val) > 0
	}
	if f, ok := toFloat64(v); ok {
		return f != 0
	}
	return true
}

// toFloat64 converts numeric types to float64. Booleans are not numbers.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toInt converts an integral number to int. Fractional values are rejected.
func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ToInt is toInt for helper implementations.
func ToInt(v any) (int, bool) { return toInt(v) }

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) { return toFloat64(v) }

// NameOf returns the name of a string or dataset object value.
func NameOf(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case *static.Location:
		if val != nil {
			return val.Name, true
		}
	case *static.Region:
		if val != nil {
			return val.Name, true
		}
	case *static.Exit:
		if val != nil {
			return val.Name, true
		}
	case *static.Item:
		if val != nil {
			return val.Name, true
		}
	case *static.Dungeon:
		if val != nil {
			return val.Name, true
		}
	}
	return "", false
}

// Strings converts a list value to item names. A bare string is a
// single-element list.
func Strings(v any) ([]string, bool) {
	switch val := v.(type) {
	case string:
		return []string{val}, true
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := NameOf(e)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// compare applies op to two evaluated operands. Numbers compare
// numerically across Go numeric kinds and strings lexically. Other values,
// undefined included, support only == and !=. Anything else is a type mismatch.
func compare(op string, left, right any) (bool, error) {
	if left == nil || right == nil {
		if op != rule.OpEq && op != rule.OpNe {
			return false, ErrTypeMismatch(op, left, right)
		}
		return (left == nil && right == nil) == (op == rule.OpEq), nil
	}

	if l, ok := toFloat64(left); ok {
		if r, ok := toFloat64(right); ok {
			return ordered(op, l, r), nil
		}
		return false, ErrTypeMismatch(op, left, right)
	}

	if l, ok := left.(string); ok {
		if r, ok := right.(string); ok {
			return ordered(op, l, r), nil
		}
		return false, ErrTypeMismatch(op, left, right)
	}

	if op != rule.OpEq && op != rule.OpNe {
		return false, ErrTypeMismatch(op, left, right)
	}

	if reflect.TypeOf(left) != reflect.TypeOf(right) {
		return false, ErrTypeMismatch(op, left, right)
	}
	return reflect.DeepEqual(left, right) == (op == rule.OpEq), nil
}

func ordered[T float64 | string](op string, l, r T) bool {
	switch op {
	case rule.OpEq:
		return l == r
	case rule.OpNe:
		return l != r
	case rule.OpLt:
		return l < r
	case rule.OpLe:
		return l <= r
	case rule.OpGt:
		return l > r
	case rule.OpGe:
		return l >= r
	default:
		return false
	}
}
