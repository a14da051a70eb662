// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/internal/dl/static"
	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/library/librarytest"
	"github.com/holomush/bridgehost/internal/property"
)

// fixture is a registry over an in-process library table.
type fixture struct {
	t      *testing.T
	ctx    context.Context
	static *static.Loader
	props  *property.Store
	reg    *library.Registry
}

func newFixture(t *testing.T, opts ...library.Option) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		static: static.New(),
		props:  property.NewStore(),
	}
	opts = append([]library.Option{library.WithStatic(f.static), library.WithProperties(f.props)}, opts...)
	f.reg = library.New(opts...)
	f.static = f.reg.Static()
	t.Cleanup(func() { _ = f.reg.Close(context.Background()) })
	return f
}

// register adds a stub library of kind under name.
func (f *fixture) register(kind library.Kind, name string, overrides map[string]any) {
	f.static.Register(name, librarytest.Stub(kind, name, overrides))
}

// middleware registers a controllable middleware fake.
func (f *fixture) middleware(name string, overrides map[string]any) *librarytest.Middleware {
	m := librarytest.NewMiddleware(name)
	f.static.Register(name, m.Symbols(overrides))
	return m
}

func (f *fixture) set(key, value string) {
	f.t.Helper()
	require.NoError(f.t, f.props.Set(key, value))
}

func (f *fixture) load(name string, kind library.Kind) *library.Library {
	f.t.Helper()
	lib, err := f.reg.Load(f.ctx, name, kind, "")
	require.NoError(f.t, err)
	require.NotNil(f.t, lib)
	return lib
}

func (f *fixture) middlewareManager() *library.MiddlewareManager {
	f.t.Helper()
	m, err := f.reg.Middleware()
	require.NoError(f.t, err)
	return m
}

func (f *fixture) payloadManager() *library.PayloadManager {
	f.t.Helper()
	m, err := f.reg.Payload()
	require.NoError(f.t, err)
	return m
}

func (f *fixture) entitlementManager() *library.EntitlementManager {
	f.t.Helper()
	m, err := f.reg.Entitlement()
	require.NoError(f.t, err)
	return m
}

func (f *fixture) pluginManager() *library.PluginManager {
	f.t.Helper()
	m, err := f.reg.Plugins()
	require.NoError(f.t, err)
	return m
}

func (f *fixture) typeManager(kind library.Kind) *library.TypeManager {
	f.t.Helper()
	tm, err := f.reg.TypeManager(kind)
	require.NoError(f.t, err)
	return tm
}

func names(libs []*library.Library) []string {
	out := make([]string, len(libs))
	for i, lib := range libs {
		out[i] = lib.Name()
	}
	return out
}
