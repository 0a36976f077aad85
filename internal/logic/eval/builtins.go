// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package eval

type builtin func(iface Interface, name string, args []any) (any, error)

// builtins query the Interface directly. A nil required argument means the
// caller passed an undefined value; the result is then undefined too.
var builtins = map[string]builtin{
	"has":         builtinHas,
	"count":       builtinCount,
	"has_any":     builtinHasAny,
	"has_all":     builtinHasAll,
	"has_group":   builtinHasGroup,
	"count_group": builtinCountGroup,
	"can_reach":   builtinCanReach,
}

// IsBuiltin reports whether name is handled by the evaluator itself.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func arity(name string, args []any, minArgs, maxArgs int) error {
	if len(args) < minArgs || len(args) > maxArgs {
		return ErrMalformedRule("%s takes %d to %d arguments, got %d", name, minArgs, maxArgs, len(args))
	}
	return nil
}

func stringArg(name string, v any) (string, error) {
	s, ok := NameOf(v)
	if !ok {
		return "", ErrTypeMismatch(name, v, "")
	}
	return s, nil
}

// optionalCount reads an optional minimum count at args[i], defaulting to 1.
func optionalCount(name string, args []any, i int) (int, error) {
	if len(args) <= i || args[i] == nil {
		return 1, nil
	}
	n, ok := toInt(args[i])
	if !ok {
		return 0, ErrTypeMismatch(name, args[i], 0)
	}
	return n, nil
}

func builtinHas(iface Interface, name string, args []any) (any, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	item, err := stringArg(name, args[0])
	if err != nil {
		return nil, err
	}
	count, err := optionalCount(name, args, 1)
	if err != nil {
		return nil, err
	}
	return iface.HasItem(item, count), nil
}

func builtinCount(iface Interface, name string, args []any) (any, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	item, err := stringArg(name, args[0])
	if err != nil {
		return nil, err
	}
	return iface.CountItem(item), nil
}

func itemList(name string, args []any) ([]string, bool, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return nil, false, err
	}
	if args[0] == nil {
		return nil, false, nil
	}
	items, ok := Strings(args[0])
	if !ok {
		return nil, false, ErrTypeMismatch(name, args[0], []string{})
	}
	return items, true, nil
}

func builtinHasAny(iface Interface, name string, args []any) (any, error) {
	items, ok, err := itemList(name, args)
	if err != nil || !ok {
		return nil, err
	}
	for _, item := range items {
		if iface.HasItem(item, 1) {
			return true, nil
		}
	}
	return false, nil
}

func builtinHasAll(iface Interface, name string, args []any) (any, error) {
	items, ok, err := itemList(name, args)
	if err != nil || !ok {
		return nil, err
	}
	for _, item := range items {
		if !iface.HasItem(item, 1) {
			return false, nil
		}
	}
	return true, nil
}

func builtinHasGroup(iface Interface, name string, args []any) (any, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	group, err := stringArg(name, args[0])
	if err != nil {
		return nil, err
	}
	count, err := optionalCount(name, args, 1)
	if err != nil {
		return nil, err
	}
	return iface.CountGroup(group) >= count, nil
}

func builtinCountGroup(iface Interface, name string, args []any) (any, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	group, err := stringArg(name, args[0])
	if err != nil {
		return nil, err
	}
	return iface.CountGroup(group), nil
}

// builtinCanReach answers a reachability query. Unknown answers are
// returned as undefined.
func builtinCanReach(iface Interface, name string, args []any) (any, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	kind := KindRegion
	if len(args) == 2 && args[1] != nil {
		s, ok := args[1].(string)
		if !ok {
			return nil, ErrTypeMismatch(name, args[1], "")
		}
		kind = s
	}

	var (
		t   Tri
		err error
	)
	switch kind {
	case KindRegion:
		var region string
		if region, err = stringArg(name, args[0]); err != nil {
			return nil, err
		}
		t, err = iface.RegionReachable(region)
	case KindLocation:
		t, err = iface.LocationAccessible(args[0])
	case KindEntrance:
		var exit string
		if exit, err = stringArg(name, args[0]); err != nil {
			return nil, err
		}
		t, err = iface.ExitAccessible(exit)
	default:
		return nil, ErrMalformedRule("can_reach: unknown kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return t.Value(), nil
}
