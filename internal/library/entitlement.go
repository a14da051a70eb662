// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// EntitlementLibrary is the closure of an entitlement library.
type EntitlementLibrary struct {
	id    byte
	table *bridge.Entitlement
}

// EntitlementManager supervises entitlement bridges. Activation calls the
// bridge's setup entry point and deactivation its tear down.
type EntitlementManager struct {
	reg *Registry
	tm  *TypeManager
	ids idAssigner
}

// Compile-time interface check.
var _ kindFuncs = (*EntitlementManager)(nil)

func newEntitlementManager(r *Registry, tm *TypeManager) *EntitlementManager {
	m := &EntitlementManager{reg: r, tm: tm}
	m.ids = idAssigner{tm: tm, legacy: legacyEntitlementIDs, idOf: func(lib *Library) byte {
		if el, ok := lib.closure.(*EntitlementLibrary); ok {
			return el.id
		}
		return 0
	}}
	tm.funcs = m
	return m
}

// TypeManager returns the underlying manager.
func (m *EntitlementManager) TypeManager() *TypeManager { return m.tm }

func (m *EntitlementManager) create(lib *Library) {
	lib.closure = &EntitlementLibrary{}
}

func (m *EntitlementManager) activate(ctx context.Context, lib *Library) error {
	el := lib.closure.(*EntitlementLibrary)
	t, err := buildEntitlement(m.reg.binder(ctx, lib))
	if err != nil {
		return err
	}
	id, err := m.ids.assign(lib, 0)
	if err != nil {
		return err
	}
	if status := t.Setup.Call(); !status.OK() {
		return bridgeError(lib, "Entitlement_setup", status)
	}
	lib.mu.Lock()
	el.id = id
	el.table = t
	lib.mu.Unlock()
	return nil
}

func (m *EntitlementManager) deactivate(_ context.Context, lib *Library) error {
	el := lib.closure.(*EntitlementLibrary)
	lib.mu.Lock()
	t := el.table
	el.table = nil
	lib.mu.Unlock()
	if t == nil {
		return nil
	}
	if status := t.TearDown.Call(); !status.OK() {
		return bridgeError(lib, "Entitlement_tearDown", status)
	}
	return nil
}

func (m *EntitlementManager) destroy(*Library) {}

func (m *EntitlementManager) describe(*Library, string) (string, bool) {
	return "", false
}

func (m *EntitlementManager) closure(lib *Library) (*EntitlementLibrary, error) {
	if lib == nil {
		return nil, oops.In("entitlement").Code(bridge.StatusNullArg.Code()).Errorf("library is nil")
	}
	el, ok := lib.closure.(*EntitlementLibrary)
	if !ok {
		return nil, oops.In("entitlement").Code(bridge.StatusInvalidArg.Code()).
			With("library", lib.name).With("kind", lib.kind.String()).
			Errorf("%s is not an entitlement library", lib)
	}
	return el, nil
}

// Table returns the dispatch table of a loaded entitlement library.
func (m *EntitlementManager) Table(lib *Library) (*bridge.Entitlement, error) {
	el, err := m.closure(lib)
	if err != nil {
		return nil, err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if el.table == nil {
		return nil, oops.In("entitlement").Code(bridge.StatusNotFound.Code()).
			With("library", lib.name).Errorf("entitlement %s is not loaded", lib.name)
	}
	return el.table, nil
}

// IsAllowed asks lib whether subject may be accessed. A not-entitled answer
// is reported as false without an error.
func (m *EntitlementManager) IsAllowed(_ context.Context, lib *Library, subject string) (bool, error) {
	t, err := m.Table(lib)
	if err != nil {
		return false, err
	}
	switch status := t.IsAllowed.Call(0, subject); status {
	case bridge.StatusOK:
		return true, nil
	case bridge.StatusNotEntitled:
		return false, nil
	default:
		return false, bridgeError(lib, "Entitlement_isAllowed", status)
	}
}

// ID returns the single character id of lib.
func (m *EntitlementManager) ID(lib *Library) (byte, error) {
	el, err := m.closure(lib)
	if err != nil {
		return 0, err
	}
	m.tm.mu.RLock()
	defer m.tm.mu.RUnlock()
	return el.id, nil
}

// ByID returns the entitlement library holding id.
func (m *EntitlementManager) ByID(id byte) (*Library, error) {
	return m.ids.byID(id)
}
