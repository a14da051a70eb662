// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package static serves libraries compiled into the host process. Each
// registration is a name and a table of Go symbols, which is how the host
// ships its built-in default bridges and how tests fake bridges.
package static

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Symbols maps exported symbol names to Go values.
type Symbols map[string]any

// Loader serves registered in-process libraries. The zero value is ready to
// use.
type Loader struct {
	libs map[string]Symbols
	mu   sync.RWMutex
}

// Compile-time interface check.
var _ dl.Registrar = (*Loader)(nil)

// New creates an empty loader.
func New() *Loader {
	return &Loader{libs: make(map[string]Symbols)}
}

// Register adds or replaces the library name. The table is copied.
func (l *Loader) Register(name string, syms Symbols) {
	cp := make(Symbols, len(syms))
	for k, v := range syms {
		cp[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.libs == nil {
		l.libs = make(map[string]Symbols)
	}
	l.libs[name] = cp
}

// Unregister removes the library name. Libraries already opened keep their
// symbols.
func (l *Loader) Unregister(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.libs, name)
}

// Has reports whether name is registered.
func (l *Loader) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.libs[name]
	return ok
}

// Names returns the registered library names, sorted.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.libs))
	for name := range l.libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns the registered library name. The path is ignored.
func (l *Loader) Open(_ context.Context, name, _ string) (dl.Library, error) {
	l.mu.RLock()
	syms, ok := l.libs[name]
	l.mu.RUnlock()
	if !ok {
		return nil, oops.In("dl").Code(bridge.StatusNotFound.Code()).With("library", name).
			Wrap(fmt.Errorf("%w: %q is not registered in process", dl.ErrLibraryNotFound, name))
	}
	return &library{name: name, syms: syms}, nil
}

type library struct {
	name   string
	syms   Symbols
	mu     sync.RWMutex
	closed bool
}

func (lib *library) Path() string { return "" }

func (lib *library) Lookup(name string) (dl.Symbol, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if lib.closed {
		return nil, dl.ErrLibraryClosed
	}
	sym, ok := lib.syms[name]
	if !ok || sym == nil {
		return nil, fmt.Errorf("%w: %s in %s", dl.ErrSymbolNotFound, name, lib.name)
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
