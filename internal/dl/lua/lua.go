// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lua opens bridges written as Lua scripts. A script exports entry
// points as global functions named like any other bridge symbol, for example
// "loopBridge_open". Each library runs in its own sandboxed state; calls into
// one library are serialized, so a script's start function must return
// rather than block.
package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Loader opens Lua bridge scripts.
type Loader struct {
	factory *StateFactory
}

// Compile-time interface check.
var _ dl.Loader = (*Loader)(nil)

// NewLoader creates a Lua loader.
func NewLoader() *Loader {
	return &Loader{factory: NewStateFactory()}
}

// Open reads and runs the script at path in a fresh sandboxed state.
func (l *Loader) Open(ctx context.Context, name, path string) (dl.Library, error) {
	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("lua").Code(bridge.StatusNotFound.Code()).
			With("library", name).With("path", path).Hint("failed to read script").Wrap(err)
	}

	L, err := l.factory.NewState(ctx, name)
	if err != nil {
		return nil, oops.In("lua").Code(bridge.StatusPlatform.Code()).
			With("library", name).Hint("failed to create state").Wrap(err)
	}

	if err := L.DoString(string(code)); err != nil {
		L.Close()
		return nil, oops.In("lua").Code(bridge.StatusPlatform.Code()).
			With("library", name).With("path", path).Hint("script error").Wrap(err)
	}
	L.RemoveContext()

	return &library{name: name, path: path, state: L}, nil
}

type library struct {
	name  string
	path  string
	state *lua.LState
	mu    sync.Mutex
}

func (lib *library) Path() string { return lib.path }

func (lib *library) Lookup(name string) (dl.Symbol, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if lib.state == nil {
		return nil, dl.ErrLibraryClosed
	}
	fn, ok := lib.state.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", dl.ErrSymbolNotFound, name, lib.path)
	}
	return &function{lib: lib, name: name, fn: fn}, nil
}

func (lib *library) Close() error {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if lib.state == nil {
		return dl.ErrLibraryClosed
	}
	lib.state.Close()
	lib.state = nil
	return nil
}

// function is a Lua global exposed as a dl.Callable.
type function struct {
	lib  *library
	name string
	fn   *lua.LFunction
}

func (f *function) Call(ctx context.Context, args []any, nret int) ([]any, error) {
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		v, err := toLua(a)
		if err != nil {
			return nil, oops.In("lua").With("symbol", f.name).With("arg", i).Wrap(err)
		}
		largs[i] = v
	}

	f.lib.mu.Lock()
	defer f.lib.mu.Unlock()
	L := f.lib.state
	if L == nil {
		return nil, dl.ErrLibraryClosed
	}

	L.SetContext(ctx)
	defer L.RemoveContext()

	if err := L.CallByParam(lua.P{
		Fn:      f.fn,
		NRet:    nret,
		Protect: true,
	}, largs...); err != nil {
		return nil, oops.In("lua").With("library", f.lib.name).With("symbol", f.name).Wrap(err)
	}

	results := make([]any, nret)
	for i := 0; i < nret; i++ {
		results[i] = fromLua(L.Get(-nret + i))
	}
	L.Pop(nret)
	return results, nil
}

func toLua(v any) (lua.LValue, error) {
	switch val := v.(type) {
	case nil:
		return lua.LNil, nil
	case int64:
		return lua.LNumber(val), nil
	case uint64:
		return lua.LNumber(val), nil
	case float64:
		return lua.LNumber(val), nil
	case bool:
		return lua.LBool(val), nil
	case string:
		return lua.LString(val), nil
	default:
		return lua.LNil, fmt.Errorf("cannot pass %T to lua", v)
	}
}

func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case lua.LBool:
		return bool(val)
	default:
		return nil
	}
}
