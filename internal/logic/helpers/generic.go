// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package helpers

import (
	"reflect"

	"github.com/samber/oops"

	"github.com/holomush/reachlogic/internal/logic/eval"
)

// Generic returns the fallback table used for every game.
func Generic() *Table {
	return NewTable("").
		Set("has_specific_key_count", hasSpecificKeyCount).
		Set("has_any_of", hasAnyOf).
		Set("has_all_of", hasAllOf).
		Set("has_from_list", hasFromList).
		Set("count_from_list", countFromList).
		Set("has_flag", hasFlag).
		Set("is_checked", isChecked).
		Set("setting_is", settingIs)
}

// GenericAliases maps compiler-emitted names shared by every game.
func GenericAliases() *AliasSet {
	return NewAliasSet().
		MustAdd("_has_specific_key_count", "has_specific_key_count", 1, "").
		MustAdd("has_from_list", "has_from_list", 1, "")
}

func argError(helper string, format string, args ...any) error {
	return oops.Code(eval.CodeMalformedRule).With("helper", helper).Errorf(format, args...)
}

func nameArg(helper string, args []any, i int) (string, error) {
	if i >= len(args) {
		return "", argError(helper, "%s: missing argument %d", helper, i+1)
	}
	s, ok := eval.NameOf(args[i])
	if !ok {
		return "", eval.ErrTypeMismatch(helper, args[i], "")
	}
	return s, nil
}

func countArg(helper string, args []any, i, def int) (int, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	n, ok := eval.ToInt(args[i])
	if !ok {
		return 0, eval.ErrTypeMismatch(helper, args[i], 0)
	}
	return n, nil
}

// listArgs accepts either one list argument or a variadic list of names.
func listArgs(helper string, args []any) ([]string, error) {
	if len(args) == 1 {
		if items, ok := eval.Strings(args[0]); ok {
			return items, nil
		}
		return nil, eval.ErrTypeMismatch(helper, args[0], []string{})
	}
	items := make([]string, 0, len(args))
	for i := range args {
		s, err := nameArg(helper, args, i)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

// has_specific_key_count(key, count=1)
func hasSpecificKeyCount(env *Env, args ...any) (any, error) {
	key, err := nameArg("has_specific_key_count", args, 0)
	if err != nil {
		return nil, err
	}
	count, err := countArg("has_specific_key_count", args, 1, 1)
	if err != nil {
		return nil, err
	}
	return env.Has(key, count), nil
}

func hasAnyOf(env *Env, args ...any) (any, error) {
	items, err := listArgs("has_any_of", args)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if env.Has(item, 1) {
			return true, nil
		}
	}
	return false, nil
}

func hasAllOf(env *Env, args ...any) (any, error) {
	items, err := listArgs("has_all_of", args)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !env.Has(item, 1) {
			return false, nil
		}
	}
	return true, nil
}

func countOwned(env *Env, items []string) int {
	n := 0
	for _, item := range items {
		n += env.Count(item)
	}
	return n
}

// has_from_list(items, count): at least count copies across items.
func hasFromList(env *Env, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, argError("has_from_list", "has_from_list: missing item list")
	}
	items, ok := eval.Strings(args[0])
	if !ok {
		return nil, eval.ErrTypeMismatch("has_from_list", args[0], []string{})
	}
	count, err := countArg("has_from_list", args, 1, 1)
	if err != nil {
		return nil, err
	}
	return countOwned(env, items) >= count, nil
}

func countFromList(env *Env, args ...any) (any, error) {
	items, err := listArgs("count_from_list", args)
	if err != nil {
		return nil, err
	}
	return countOwned(env, items), nil
}

func hasFlag(env *Env, args ...any) (any, error) {
	flag, err := nameArg("has_flag", args, 0)
	if err != nil {
		return nil, err
	}
	return env.Snapshot != nil && env.Snapshot.HasFlag(flag), nil
}

func isChecked(env *Env, args ...any) (any, error) {
	loc, err := nameArg("is_checked", args, 0)
	if err != nil {
		return nil, err
	}
	return env.Snapshot != nil && env.Snapshot.IsChecked(loc), nil
}

// setting_is(name, value) compares a setting by equality. A missing
// setting is never equal.
func settingIs(env *Env, args ...any) (any, error) {
	name, err := nameArg("setting_is", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, argError("setting_is", "setting_is: missing value")
	}
	if env.Snapshot == nil {
		return false, nil
	}
	v, ok := env.Snapshot.Setting(name)
	if !ok {
		return false, nil
	}
	if l, ok := eval.ToFloat(v); ok {
		r, ok := eval.ToFloat(args[1])
		return ok && l == r, nil
	}
	return reflect.DeepEqual(v, args[1]), nil
}
