// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// kindFuncs is the kind-specific half of a TypeManager. Exactly one
// implementation exists per kind.
type kindFuncs interface {
	// create allocates the library's closure.
	create(lib *Library)
	// activate binds the library's dispatch table and assigns its identity.
	// It runs with the manager lock held, before the library is visible.
	activate(ctx context.Context, lib *Library) error
	// deactivate releases what activate acquired. It runs with the manager
	// lock held.
	deactivate(ctx context.Context, lib *Library) error
	// destroy releases the closure.
	destroy(lib *Library)
	// describe answers a generic property from the bridge itself.
	describe(lib *Library, prop string) (string, bool)
}

// TypeManager holds the loaded libraries of one kind.
type TypeManager struct {
	kind  Kind
	reg   *Registry
	funcs kindFuncs

	mu    sync.RWMutex
	libs  map[string]*Library
	count atomic.Int32

	signals      *Signals
	loadSignal   SignalID
	unloadSignal SignalID
	startSignal  SignalID
	stopSignal   SignalID
}

func newTypeManager(reg *Registry, kind Kind) (*TypeManager, error) {
	tm := &TypeManager{
		kind:        kind,
		reg:         reg,
		libs:        make(map[string]*Library),
		signals:     NewSignals(reg.signalCap, reg.slotCap),
		startSignal: -1,
		stopSignal:  -1,
	}
	var err error
	if tm.loadSignal, err = tm.signals.Create(); err != nil {
		return nil, err
	}
	if tm.unloadSignal, err = tm.signals.Create(); err != nil {
		return nil, err
	}
	if kind == KindMiddleware {
		if tm.startSignal, err = tm.signals.Create(); err != nil {
			return nil, err
		}
		if tm.stopSignal, err = tm.signals.Create(); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

// Kind returns the kind this manager holds.
func (tm *TypeManager) Kind() Kind { return tm.kind }

// Count returns the number of loaded libraries.
func (tm *TypeManager) Count() int { return int(tm.count.Load()) }

// Signals returns the manager's signal set.
func (tm *TypeManager) Signals() *Signals { return tm.signals }

// LoadSignal is raised after a library is loaded.
func (tm *TypeManager) LoadSignal() SignalID { return tm.loadSignal }

// UnloadSignal is raised after a library is unloaded.
func (tm *TypeManager) UnloadSignal() SignalID { return tm.unloadSignal }

// StartSignal is raised before a middleware bridge starts. It is -1 for
// other kinds.
func (tm *TypeManager) StartSignal() SignalID { return tm.startSignal }

// StopSignal is raised after a middleware bridge stops. It is -1 for other
// kinds.
func (tm *TypeManager) StopSignal() SignalID { return tm.stopSignal }

// Get returns the library called name.
func (tm *TypeManager) Get(name string) (*Library, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	lib, ok := tm.libs[name]
	if !ok {
		return nil, oops.In("library").Code(bridge.StatusNotFound.Code()).
			With("library", name).With("kind", tm.kind.String()).
			Errorf("%s library %q is not loaded", tm.kind, name)
	}
	return lib, nil
}

// List returns the libraries accepted by pred, sorted by name. A nil pred
// accepts every library.
func (tm *TypeManager) List(pred func(*Library) bool) []*Library {
	all := tm.snapshot()
	out := all[:0]
	for _, lib := range all {
		if pred == nil || pred(lib) {
			out = append(out, lib)
		}
	}
	return out
}

// ForEach calls fn for each library in name order until fn returns false.
// The manager lock is not held while fn runs.
func (tm *TypeManager) ForEach(fn func(*Library) bool) {
	for _, lib := range tm.snapshot() {
		if !fn(lib) {
			return
		}
	}
}

func (tm *TypeManager) snapshot() []*Library {
	tm.mu.RLock()
	libs := make([]*Library, 0, len(tm.libs))
	for _, lib := range tm.libs {
		libs = append(libs, lib)
	}
	tm.mu.RUnlock()
	sort.Slice(libs, func(i, j int) bool { return libs[i].name < libs[j].name })
	return libs
}

// load opens, binds and registers a library. Loading a name that is already
// present returns the existing library. handle, when non-nil, is an already
// opened library to adopt.
func (tm *TypeManager) load(ctx context.Context, name, path string, handle dl.Library) (*Library, error) {
	tm.mu.Lock()
	if lib, ok := tm.libs[name]; ok {
		tm.mu.Unlock()
		if handle != nil {
			_ = handle.Close()
		}
		return lib, nil
	}

	if handle == nil {
		var err error
		if handle, err = tm.reg.open(ctx, name, path); err != nil {
			tm.mu.Unlock()
			return nil, err
		}
	}
	lib, err := tm.createLibrary(ctx, name, path, handle)
	if err != nil {
		tm.mu.Unlock()
		if cerr := handle.Close(); cerr != nil {
			slog.Warn("failed to close library after failed load", "library", name, "error", cerr)
		}
		return nil, err
	}
	tm.mu.Unlock()

	slog.Debug("library loaded", "library", name, "kind", tm.kind.String(), "path", path)
	tm.raise(tm.loadSignal, lib)
	return lib, nil
}

// createLibrary builds the record and its closure. Must be called with tm.mu
// held; on failure nothing is retained.
func (tm *TypeManager) createLibrary(ctx context.Context, name, path string, handle dl.Library) (*Library, error) {
	lib := newLibrary(name, tm.kind, path, handle)
	tm.funcs.create(lib)
	if err := tm.funcs.activate(ctx, lib); err != nil {
		tm.funcs.destroy(lib)
		return nil, err
	}
	tm.libs[name] = lib
	tm.count.Add(1)
	return lib, nil
}

// unload deactivates and forgets a library, then closes its handle.
func (tm *TypeManager) unload(ctx context.Context, name string) error {
	tm.mu.Lock()
	lib, ok := tm.libs[name]
	if !ok {
		tm.mu.Unlock()
		return oops.In("library").Code(bridge.StatusNotFound.Code()).
			With("library", name).With("kind", tm.kind.String()).
			Errorf("%s library %q is not loaded", tm.kind, name)
	}
	stopped := started(lib)
	err := tm.destroyLibrary(ctx, lib)
	tm.mu.Unlock()

	if stopped {
		tm.raise(tm.stopSignal, lib)
	}
	tm.raise(tm.unloadSignal, lib)
	return err
}

// destroyLibrary is the inverse of createLibrary. The record is removed even
// when the bridge reports a failure, which is returned.
func (tm *TypeManager) destroyLibrary(ctx context.Context, lib *Library) error {
	err := tm.funcs.deactivate(ctx, lib)
	if err != nil {
		slog.Warn("bridge failed to deactivate", "library", lib.name, "kind", tm.kind.String(), "error", err)
	}
	tm.funcs.destroy(lib)
	delete(tm.libs, lib.name)
	tm.count.Add(-1)
	if cerr := lib.handle.Close(); cerr != nil {
		slog.Warn("failed to close library", "library", lib.name, "error", cerr)
	}
	return err
}

// drain force-unloads every library and clears all signal state.
func (tm *TypeManager) drain(ctx context.Context) error {
	var errs []error
	for _, lib := range tm.snapshot() {
		if err := tm.unload(ctx, lib.name); err != nil && !bridge.IsStatus(err, bridge.StatusNotFound) {
			errs = append(errs, err)
		}
	}
	tm.signals.Reset()
	if len(errs) > 0 {
		return oops.In("library").With("kind", tm.kind.String()).Wrap(errors.Join(errs...))
	}
	return nil
}

func (tm *TypeManager) raise(id SignalID, lib *Library) {
	if err := tm.signals.Raise(id, lib); err != nil {
		slog.Debug("signal not raised", "signal", int(id), "library", lib.name, "error", err)
	}
}

// probe reports whether handle exports an entry point identifying this
// kind.
func (tm *TypeManager) probe(name string, handle dl.Library) bool {
	for _, fn := range probes[tm.kind] {
		if _, err := handle.Lookup(name + fn); err == nil {
			return true
		}
	}
	return false
}

// Property resolves a generic property of lib: the property hierarchy
// first, then the bridge, then a built-in default. Properties prefixed with
// "bridge_" fall back to their unprefixed form.
func (tm *TypeManager) Property(lib *Library, prop string) string {
	base := strings.TrimPrefix(prop, property.BridgePrefix)
	props := tm.reg.props
	if base != prop {
		if v, ok := props.Bridge(lib.name, tm.kind.String(), base); ok {
			return v
		}
	} else if v, ok := props.Library(lib.name, tm.kind.String(), prop); ok {
		return v
	}
	if v, ok := tm.funcs.describe(lib, base); ok && v != "" {
		return v
	}
	return tm.defaultProperty(lib, base)
}

func (tm *TypeManager) defaultProperty(lib *Library, prop string) string {
	switch prop {
	case property.Name:
		return lib.name
	case property.Description:
		return "The " + lib.name + " " + tm.kind.String() + " bridge"
	case property.Author, property.URI, property.License, property.Version:
		return "Unknown"
	case property.MamaVersion:
		return ""
	default:
		return ""
	}
}
