// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package loaders assembles the default dynamic loader: every library format
// the host understands, routed by file name.
package loaders

import (
	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/internal/dl/goplugin"
	"github.com/holomush/bridgehost/internal/dl/lua"
	"github.com/holomush/bridgehost/internal/dl/native"
	"github.com/holomush/bridgehost/internal/dl/rpc"
	"github.com/holomush/bridgehost/internal/dl/static"
)

// File name templates per format. "%s" is the library name.
var (
	SharedObjectTemplates = []string{"libmama%simpl.so", "mama%simpl.so"}
	DylibTemplates        = []string{"libmama%simpl.dylib"}
	GoPluginTemplates     = []string{"mama%simpl.plugin.so"}
	LuaTemplates          = []string{"mama%simpl.lua"}
	RPCTemplates          = []string{"mama%simpl.bridge"}
	ExecutableTemplates   = []string{"mama%simpl"}
)

// Routes returns the routes of every supported format.
func Routes() []dl.Route {
	return []dl.Route{
		{Format: "goplugin", Suffix: ".plugin.so", Templates: GoPluginTemplates, Loader: goplugin.Loader{}},
		{Format: "native", Suffix: ".so", Templates: SharedObjectTemplates, Loader: &native.Loader{}},
		{Format: "native", Suffix: ".dylib", Templates: DylibTemplates, Loader: &native.Loader{}},
		{Format: "lua", Suffix: ".lua", Templates: LuaTemplates, Loader: lua.NewLoader()},
		{Format: "rpc", Suffix: ".bridge", Templates: RPCTemplates, Loader: rpc.NewLoader()},
		{Format: "rpc", Suffix: "", Templates: ExecutableTemplates, Loader: rpc.NewLoader()},
	}
}

// NewDefault returns a router over every supported format, serving in-process
// registrations from st first.
func NewDefault(st *static.Loader, searchPath []string) *dl.Router {
	return dl.NewRouter(st, searchPath, Routes()...)
}
