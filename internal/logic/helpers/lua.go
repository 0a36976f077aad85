// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package helpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/holomush/reachlogic/internal/logic/eval"
)

// DefaultLuaTimeout bounds a single scripted helper call.
const DefaultLuaTimeout = time.Second

// safeLibraries are opened in every script state. os, io, debug and
// package are never loaded.
var safeLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// unsafeBaseFunctions reach the filesystem or compile arbitrary code.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// luaAPI names the globals installed for scripts.
var luaAPI = []string{"has", "count", "count_group", "flag", "setting", "can_reach", "world"}

type luaConfig struct {
	timeout time.Duration
}

// LuaOption configures scripted helper tables.
type LuaOption func(*luaConfig)

// WithLuaTimeout bounds each helper call. Defaults to DefaultLuaTimeout.
func WithLuaTimeout(d time.Duration) LuaOption {
	return func(c *luaConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// LoadLua compiles a helper script for game. Every global function the
// script defines becomes a helper. Each call runs in a fresh sandboxed
// state, so scripts cannot keep state between calls.
//
// Scripts see these globals:
//
//	has(item [, count])  count(item)  count_group(group)
//	flag(name)  setting(name)  can_reach(region)  world
func LoadLua(game, source string, opts ...LuaOption) (*Table, error) {
	cfg := luaConfig{timeout: DefaultLuaTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	chunk, err := parse.Parse(strings.NewReader(source), game)
	if err != nil {
		return nil, oops.In("lua").With("game", game).Wrapf(err, "parsing helper script")
	}
	proto, err := lua.Compile(chunk, game)
	if err != nil {
		return nil, oops.In("lua").With("game", game).Wrapf(err, "compiling helper script")
	}

	names, err := scriptFunctions(proto, cfg.timeout)
	if err != nil {
		return nil, oops.In("lua").With("game", game).Wrap(err)
	}

	t := NewTable(game)
	for _, name := range names {
		t.Set(name, luaHelper(proto, name, cfg.timeout))
	}
	return t, nil
}

// LoadLuaFile reads and compiles a helper script from disk.
func LoadLuaFile(game, path string, opts ...LuaOption) (*Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("lua").With("game", game).With("path", path).Wrapf(err, "reading helper script")
	}
	return LoadLua(game, string(data), opts...)
}

// newSandbox creates a Lua state with only the safe libraries loaded.
func newSandbox() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}
	return L, nil
}

// runScript installs the API for env and executes the compiled chunk.
func runScript(L *lua.LState, proto *lua.FunctionProto, env *Env) error {
	installAPI(L, env)
	L.Push(L.NewFunctionFromProto(proto))
	return L.PCall(0, lua.MultRet, nil)
}

// scriptFunctions runs the script once and reports the global functions
// it added, sorted.
func scriptFunctions(proto *lua.FunctionProto, timeout time.Duration) ([]string, error) {
	L, err := newSandbox()
	if err != nil {
		return nil, err
	}
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	L.SetContext(ctx)

	baseline := make(map[string]struct{})
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		baseline[k.String()] = struct{}{}
	})
	for _, name := range luaAPI {
		baseline[name] = struct{}{}
	}

	if err := runScript(L, proto, &Env{}); err != nil {
		return nil, fmt.Errorf("running helper script: %w", err)
	}

	var names []string
	L.G.Global.ForEach(func(k, v lua.LValue) {
		if _, ok := baseline[k.String()]; ok {
			return
		}
		if _, ok := v.(*lua.LFunction); ok {
			names = append(names, k.String())
		}
	})
	sort.Strings(names)
	return names, nil
}

func luaHelper(proto *lua.FunctionProto, name string, timeout time.Duration) Func {
	return func(env *Env, args ...any) (any, error) {
		L, err := newSandbox()
		if err != nil {
			return nil, oops.In("lua").With("helper", name).Wrap(err)
		}
		defer L.Close()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		L.SetContext(ctx)

		if err := runScript(L, proto, env); err != nil {
			return nil, oops.In("lua").With("helper", name).Wrapf(err, "loading helper script")
		}

		luaArgs := make([]lua.LValue, len(args))
		for i, a := range args {
			luaArgs[i] = toLua(L, a)
		}
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal(name),
			NRet:    1,
			Protect: true,
		}, luaArgs...); err != nil {
			return nil, oops.In("lua").With("helper", name).Wrap(err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		return fromLua(ret), nil
	}
}

func installAPI(L *lua.LState, env *Env) {
	L.SetGlobal("world", lua.LString(env.World))
	L.SetGlobal("has", L.NewFunction(func(L *lua.LState) int {
		item := L.CheckString(1)
		count := L.OptInt(2, 1)
		L.Push(lua.LBool(env.Has(item, count)))
		return 1
	}))
	L.SetGlobal("count", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(env.Count(L.CheckString(1))))
		return 1
	}))
	L.SetGlobal("count_group", L.NewFunction(func(L *lua.LState) int {
		group := L.CheckString(1)
		n := 0
		if env.Query != nil {
			n = env.Query.CountGroup(group)
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	L.SetGlobal("flag", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LBool(env.Snapshot != nil && env.Snapshot.HasFlag(name)))
		return 1
	}))
	L.SetGlobal("setting", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if env.Snapshot == nil {
			L.Push(lua.LNil)
			return 1
		}
		v, _ := env.Snapshot.Setting(name)
		L.Push(toLua(L, v))
		return 1
	}))
	L.SetGlobal("can_reach", L.NewFunction(func(L *lua.LState) int {
		region := L.CheckString(1)
		if env.Query == nil {
			L.Push(lua.LNil)
			return 1
		}
		t, err := env.Query.RegionReachable(region)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(toLua(L, t.Value()))
		return 1
	}))
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []string:
		t := L.NewTable()
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.NewTable()
		for _, e := range val {
			t.Append(toLua(L, e))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, e := range val {
			t.RawSetString(k, toLua(L, e))
		}
		return t
	}
	if f, ok := eval.ToFloat(v); ok {
		return lua.LNumber(f)
	}
	if name, ok := eval.NameOf(v); ok {
		return lua.LString(name)
	}
	return lua.LString(fmt.Sprint(v))
}

// fromLua converts a return value. Tables with a sequence part become
// lists; other tables become string-keyed maps.
func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(val.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		val.ForEach(func(k, e lua.LValue) {
			out[k.String()] = fromLua(e)
		})
		return out
	default:
		return nil
	}
}
