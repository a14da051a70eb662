// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// PluginLibrary is the closure of a plugin library.
type PluginLibrary struct {
	table *bridge.Plugin
}

// PluginManager supervises plugins and fans host events out to their hooks.
type PluginManager struct {
	reg *Registry
	tm  *TypeManager
}

// Compile-time interface check.
var _ kindFuncs = (*PluginManager)(nil)

func newPluginManager(r *Registry, tm *TypeManager) *PluginManager {
	m := &PluginManager{reg: r, tm: tm}
	tm.funcs = m
	return m
}

// TypeManager returns the underlying manager.
func (m *PluginManager) TypeManager() *TypeManager { return m.tm }

func (m *PluginManager) create(lib *Library) {
	lib.closure = &PluginLibrary{}
}

func (m *PluginManager) activate(ctx context.Context, lib *Library) error {
	pl := lib.closure.(*PluginLibrary)
	t, err := buildPlugin(m.reg.binder(ctx, lib))
	if err != nil {
		return err
	}
	if status := t.InitHook.Call(); !status.OK() {
		return bridgeError(lib, "Plugin_initHook", status)
	}
	lib.mu.Lock()
	pl.table = t
	lib.mu.Unlock()
	return nil
}

func (m *PluginManager) deactivate(_ context.Context, lib *Library) error {
	pl := lib.closure.(*PluginLibrary)
	lib.mu.Lock()
	t := pl.table
	pl.table = nil
	lib.mu.Unlock()
	if t == nil || t.ShutdownHook == nil {
		return nil
	}
	if status := t.ShutdownHook(); !status.OK() {
		return bridgeError(lib, "Plugin_shutdownHook", status)
	}
	return nil
}

func (m *PluginManager) destroy(*Library) {}

func (m *PluginManager) describe(*Library, string) (string, bool) {
	return "", false
}

// Table returns the dispatch table of a loaded plugin.
func (m *PluginManager) Table(lib *Library) (*bridge.Plugin, error) {
	if lib == nil {
		return nil, oops.In("plugin").Code(bridge.StatusNullArg.Code()).Errorf("library is nil")
	}
	pl, ok := lib.closure.(*PluginLibrary)
	if !ok {
		return nil, oops.In("plugin").Code(bridge.StatusInvalidArg.Code()).
			With("library", lib.name).Errorf("%s is not a plugin library", lib)
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if pl.table == nil {
		return nil, oops.In("plugin").Code(bridge.StatusNotFound.Code()).
			With("library", lib.name).Errorf("plugin %s is not loaded", lib.name)
	}
	return pl.table, nil
}

// fire calls hook on every loaded plugin in name order. Every plugin is
// called even when one fails; failures are joined.
func (m *PluginManager) fire(fn string, hook func(t *bridge.Plugin) bridge.Status) error {
	var errs []error
	m.tm.ForEach(func(lib *Library) bool {
		t, err := m.Table(lib)
		if err != nil {
			return true
		}
		if status := hook(t); !status.OK() && status != bridge.StatusNotImplemented {
			errs = append(errs, bridgeError(lib, fn, status))
		}
		return true
	})
	if len(errs) > 0 {
		return oops.In("plugin").With("hook", fn).Wrap(errors.Join(errs...))
	}
	return nil
}

// FireTransportPostCreate notifies plugins that a transport was created.
func (m *PluginManager) FireTransportPostCreate(transport bridge.Handle) error {
	return m.fire("Plugin_transportPostCreateHook", func(t *bridge.Plugin) bridge.Status {
		return t.TransportPostCreateHook.Call(transport)
	})
}

// FireTransportEvent notifies plugins of a transport event.
func (m *PluginManager) FireTransportEvent(transport bridge.Handle, event uintptr) error {
	return m.fire("Plugin_transportEventHook", func(t *bridge.Plugin) bridge.Status {
		return t.TransportEventHook.Call(transport, event)
	})
}

// FireSubscriptionPostCreate notifies plugins that a subscription was
// created.
func (m *PluginManager) FireSubscriptionPostCreate(subscription bridge.Handle) error {
	return m.fire("Plugin_subscriptionPostCreateHook", func(t *bridge.Plugin) bridge.Status {
		return t.SubscriptionPostCreateHook.Call(subscription)
	})
}

// FireSubscriptionPreMsg notifies plugins that a message is about to be
// delivered to a subscription.
func (m *PluginManager) FireSubscriptionPreMsg(subscription bridge.Handle, msg uintptr) error {
	return m.fire("Plugin_subscriptionPreMsgHook", func(t *bridge.Plugin) bridge.Status {
		return t.SubscriptionPreMsgHook.Call(subscription, msg)
	})
}

// FirePublisherPrePublish notifies plugins that a message is about to be
// published.
func (m *PluginManager) FirePublisherPrePublish(publisher bridge.Handle, msg uintptr) error {
	return m.fire("Plugin_publisherPrePublishHook", func(t *bridge.Plugin) bridge.Status {
		return t.PublisherPrePublishHook.Call(publisher, msg)
	})
}
