// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build darwin || linux || freebsd

// Package native opens C-ABI shared objects with purego, without cgo.
// Symbols are returned as code addresses (uintptr); the bridge binder turns
// them into typed Go functions with purego.RegisterFunc.
package native

import (
	"context"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Loader opens shared objects with dlopen.
type Loader struct {
	// Global makes the library's symbols available to libraries opened
	// later (RTLD_GLOBAL), which bridges that link against each other need.
	Global bool
}

// Compile-time interface check.
var _ dl.Loader = (*Loader)(nil)

// Open dlopens path.
func (l *Loader) Open(_ context.Context, name, path string) (dl.Library, error) {
	mode := purego.RTLD_NOW | purego.RTLD_LOCAL
	if l.Global {
		mode = purego.RTLD_NOW | purego.RTLD_GLOBAL
	}
	h, err := purego.Dlopen(path, mode)
	if err != nil {
		return nil, oops.In("dl").Code(bridge.StatusPlatform.Code()).
			With("library", name).With("path", path).Wrap(err)
	}
	return &library{path: path, handle: h}, nil
}

type library struct {
	path   string
	handle uintptr
	mu     sync.RWMutex
}

func (lib *library) Path() string { return lib.path }

func (lib *library) Lookup(name string) (dl.Symbol, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if lib.handle == 0 {
		return nil, dl.ErrLibraryClosed
	}
	sym, err := purego.Dlsym(lib.handle, name)
	if err != nil || sym == 0 {
		return nil, fmt.Errorf("%w: %s in %s", dl.ErrSymbolNotFound, name, lib.path)
	}
	return sym, nil
}

func (lib *library) Close() error {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if lib.handle == 0 {
		return dl.ErrLibraryClosed
	}
	err := purego.Dlclose(lib.handle)
	lib.handle = 0
	if err != nil {
		return oops.In("dl").Code(bridge.StatusPlatform.Code()).With("path", lib.path).Wrap(err)
	}
	return nil
}
