// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// PayloadLibrary is the closure of a payload library.
type PayloadLibrary struct {
	id    byte
	table *bridge.Payload
}

// PayloadManager supervises payload bridges. The first payload loaded
// becomes the default payload.
type PayloadManager struct {
	reg *Registry
	tm  *TypeManager
	ids idAssigner
	def atomic.Pointer[Library]
}

// Compile-time interface check.
var _ kindFuncs = (*PayloadManager)(nil)

func newPayloadManager(r *Registry, tm *TypeManager) *PayloadManager {
	m := &PayloadManager{reg: r, tm: tm}
	m.ids = idAssigner{tm: tm, legacy: legacyPayloadIDs, idOf: func(lib *Library) byte {
		if pl, ok := lib.closure.(*PayloadLibrary); ok {
			return pl.id
		}
		return 0
	}}
	tm.funcs = m
	return m
}

// TypeManager returns the underlying manager.
func (m *PayloadManager) TypeManager() *TypeManager { return m.tm }

func (m *PayloadManager) create(lib *Library) {
	lib.closure = &PayloadLibrary{}
}

func (m *PayloadManager) activate(ctx context.Context, lib *Library) error {
	pl := lib.closure.(*PayloadLibrary)
	t, err := buildPayload(m.reg.binder(ctx, lib))
	if err != nil {
		return err
	}
	declared := t.State.TypeID
	if declared == 0 {
		if s := t.GetType.Call(); len(s) == 1 {
			declared = s[0]
		}
	}
	id, err := m.ids.assign(lib, declared)
	if err != nil {
		return err
	}
	lib.mu.Lock()
	pl.id = id
	pl.table = t
	lib.mu.Unlock()
	m.def.CompareAndSwap(nil, lib)
	return nil
}

// deactivate hands the default role to the oldest remaining payload.
func (m *PayloadManager) deactivate(_ context.Context, lib *Library) error {
	pl := lib.closure.(*PayloadLibrary)
	lib.mu.Lock()
	pl.table = nil
	lib.mu.Unlock()

	if m.def.Load() != lib {
		return nil
	}
	var next *Library
	for _, other := range m.tm.libs {
		if other == lib {
			continue
		}
		if next == nil || other.instanceID.Compare(next.instanceID) < 0 {
			next = other
		}
	}
	m.def.Store(next)
	return nil
}

func (m *PayloadManager) destroy(*Library) {}

func (m *PayloadManager) describe(*Library, string) (string, bool) {
	return "", false
}

func (m *PayloadManager) closure(lib *Library) (*PayloadLibrary, error) {
	if lib == nil {
		return nil, oops.In("payload").Code(bridge.StatusNullArg.Code()).Errorf("library is nil")
	}
	pl, ok := lib.closure.(*PayloadLibrary)
	if !ok {
		return nil, oops.In("payload").Code(bridge.StatusInvalidArg.Code()).
			With("library", lib.name).With("kind", lib.kind.String()).
			Errorf("%s is not a payload library", lib)
	}
	return pl, nil
}

// Default returns the default payload library.
func (m *PayloadManager) Default() (*Library, error) {
	if lib := m.def.Load(); lib != nil {
		return lib, nil
	}
	return nil, oops.In("payload").Code(bridge.StatusNotFound.Code()).Errorf("no payload library is loaded")
}

// ID returns the single character id of lib.
func (m *PayloadManager) ID(lib *Library) (byte, error) {
	pl, err := m.closure(lib)
	if err != nil {
		return 0, err
	}
	m.tm.mu.RLock()
	defer m.tm.mu.RUnlock()
	return pl.id, nil
}

// ByID returns the payload library holding id.
func (m *PayloadManager) ByID(id byte) (*Library, error) {
	return m.ids.byID(id)
}

// Table returns the dispatch table of a loaded payload library.
func (m *PayloadManager) Table(lib *Library) (*bridge.Payload, error) {
	pl, err := m.closure(lib)
	if err != nil {
		return nil, err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if pl.table == nil {
		return nil, oops.In("payload").Code(bridge.StatusNotFound.Code()).
			With("library", lib.name).Errorf("payload %s is not loaded", lib.name)
	}
	return pl.table, nil
}
