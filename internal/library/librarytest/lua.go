// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package librarytest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/holomush/bridgehost/internal/library"
)

// LuaScript returns a Lua bridge script for a library called name that
// defines every required entry point of kind. Entry points without a body
// return nothing, which binds to zero values and so to bridge.StatusOK.
//
// Bodies are keyed by entry point name without the library prefix and may
// also define optional entry points.
func LuaScript(kind library.Kind, name string, bodies map[string]string) string {
	infos, err := library.Symbols(kind)
	if err != nil {
		panic(err)
	}
	funcs := make(map[string]string, len(infos)+len(bodies))
	for _, info := range infos {
		if info.Required {
			funcs[info.Func] = ""
		}
	}
	for fn, body := range bodies {
		funcs[fn] = body
	}
	names := make([]string, 0, len(funcs))
	for fn := range funcs {
		names = append(names, fn)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, fn := range names {
		fmt.Fprintf(&b, "function %s%s(...)\n", name, fn)
		if body := funcs[fn]; body != "" {
			fmt.Fprintf(&b, "  %s\n", body)
		}
		b.WriteString("end\n\n")
	}
	return b.String()
}

// WriteLua writes LuaScript(kind, name, bodies) to dir under the file name
// discovery expects and returns its path.
func WriteLua(t testing.TB, dir string, kind library.Kind, name string, bodies map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "mama"+name+"impl.lua")
	if err := os.WriteFile(path, []byte(LuaScript(kind, name, bodies)), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
