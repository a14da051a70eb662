// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package bridge defines the contract between the bridge host and the bridges
// it loads.
//
// A bridge is a library that implements one kind of backend: a middleware
// (message transport), a payload (message encoding), an entitlement (access
// control) or a plugin (optional extension hooks). Each kind has a fixed
// dispatch table of typed function slots. The host resolves every slot from
// the library's exported symbols and hands the finished table to application
// code, which never depends on a specific backend.
//
// # Symbols
//
// A slot named FuncName is resolved from the symbol "<library>FuncName", then
// from the process-wide "default<FuncName>", then from the slot's built-in
// default (usually nil, meaning unsupported). A library named "qpid" that
// implements middleware open therefore exports "qpidBridge_open".
//
// Slot signatures only use integers, strings and [Handle] so that the same
// table can be bound from a native shared object, a Go plugin, a Lua script
// or an out-of-process bridge.
//
// # Status
//
// Every entry point reports a [Status]. The host turns non-OK statuses into
// errors with [Status.Err], and [StatusOf] recovers the status from any error
// the host returns.
//
// # Legacy bridges
//
// Old-style bridges allocate and return their own struct from a single
// "createImpl" entry point. [AdoptLegacyMiddleware] and [AdoptLegacyPayload]
// convert such a struct into the state carried by the new tables.
package bridge
