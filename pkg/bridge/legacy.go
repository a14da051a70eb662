// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

// MiddlewareHooks are callbacks a middleware bridge asks the host to invoke.
type MiddlewareHooks struct {
	// StartComplete is called after the bridge's start entry point returns.
	StartComplete func(status Status)
	// Shutdown is called when the host discards the bridge's table.
	Shutdown func()
}

// MiddlewareState is the bridge-owned state a dispatch table carries.
type MiddlewareState struct {
	Closure            any
	DefaultEventQueue  Handle
	InternalEventQueue Handle
	Hooks              MiddlewareHooks
}

// LegacyMiddleware is the struct an old-style middleware bridge allocates
// and returns from "<name>Bridge_createImpl". Only the state fields survive
// adoption; the rest belongs to the old ABI and is ignored.
type LegacyMiddleware struct {
	Name               string
	Closure            any
	DefaultEventQueue  Handle
	InternalEventQueue Handle
	StartCompleteHook  func(status Status)
	ShutdownHook       func()

	// Entry points the old ABI carried inline. The host resolves entry points
	// by symbol name, so these are never consulted.
	Open  Op
	Close Op
	Start Op
	Stop  Op

	Reserved [8]uintptr
}

// AdoptLegacyMiddleware converts an old-style allocation into the state of a
// new table. The returned value shares nothing with old except the closure
// and hook values themselves.
func AdoptLegacyMiddleware(old *LegacyMiddleware) MiddlewareState {
	if old == nil {
		return MiddlewareState{}
	}
	return MiddlewareState{
		Closure:            old.Closure,
		DefaultEventQueue:  old.DefaultEventQueue,
		InternalEventQueue: old.InternalEventQueue,
		Hooks: MiddlewareHooks{
			StartComplete: old.StartCompleteHook,
			Shutdown:      old.ShutdownHook,
		},
	}
}

// PayloadState is the bridge-owned state a payload table carries.
type PayloadState struct {
	Closure any
	// TypeID is the payload identifier the legacy bridge declared, 0 if none.
	TypeID byte
}

// LegacyPayload is the struct an old-style payload bridge allocates and
// returns from "<name>Payload_createImpl".
type LegacyPayload struct {
	Name     string
	Closure  any
	TypeID   byte
	Reserved [8]uintptr
}

// AdoptLegacyPayload converts an old-style payload allocation into the state
// of a new table.
func AdoptLegacyPayload(old *LegacyPayload) PayloadState {
	if old == nil {
		return PayloadState{}
	}
	return PayloadState{
		Closure: old.Closure,
		TypeID:  old.TypeID,
	}
}
