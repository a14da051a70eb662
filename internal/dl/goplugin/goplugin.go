// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build darwin || linux || freebsd

// Package goplugin opens bridges built with -buildmode=plugin. Their symbols
// are Go functions (or pointers to function variables), which the binder
// uses without marshalling. Go plugins cannot be unloaded; Close only stops
// further lookups.
package goplugin

import (
	"context"
	"fmt"
	"plugin"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Loader opens Go plugins.
type Loader struct{}

// Compile-time interface check.
var _ dl.Loader = (*Loader)(nil)

// Open loads the plugin at path. Opening the same path twice returns the same
// underlying plugin.
func (Loader) Open(_ context.Context, name, path string) (dl.Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, oops.In("dl").Code(bridge.StatusPlatform.Code()).
			With("library", name).With("path", path).Wrap(err)
	}
	return &library{path: path, plugin: p}, nil
}

type library struct {
	path   string
	plugin *plugin.Plugin
	mu     sync.RWMutex
	closed bool
}

func (lib *library) Path() string { return lib.path }

func (lib *library) Lookup(name string) (dl.Symbol, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if lib.closed {
		return nil, dl.ErrLibraryClosed
	}
	sym, err := lib.plugin.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", dl.ErrSymbolNotFound, name, lib.path)
	}
	return sym, nil
}

func (lib *library) Close() error {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if lib.closed {
		return dl.ErrLibraryClosed
	}
	lib.closed = true
	return nil
}
