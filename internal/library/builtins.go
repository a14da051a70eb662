// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"github.com/holomush/bridgehost/internal/dl/static"
	"github.com/holomush/bridgehost/pkg/bridge"
)

func okOp() bridge.Status { return bridge.StatusOK }

func okHandle(bridge.Handle) bridge.Status { return bridge.StatusOK }

func okHandleArg(bridge.Handle, uintptr) bridge.Status { return bridge.StatusOK }

func okHandleName(bridge.Handle, string) bridge.Status { return bridge.StatusOK }

func zeroQuery(bridge.Handle) uintptr { return 0 }

// defaultSymbols are the fallbacks for optional entry points whose neutral
// behaviour is well defined.
func defaultSymbols() static.Symbols {
	return static.Symbols{
		DefaultLibrary + "Bridge_init":                                     bridge.Op(okOp),
		DefaultLibrary + "BridgeMamaQueue_setHighWatermark":                bridge.HandleArgOp(okHandleArg),
		DefaultLibrary + "BridgeMamaQueue_setLowWatermark":                 bridge.HandleArgOp(okHandleArg),
		DefaultLibrary + "BridgeMamaTransport_getNumLoadBalanceAttributes": bridge.HandleQuery(zeroQuery),
		DefaultLibrary + "BridgeMamaTransport_getLoadBalanceScheme":        bridge.HandleQuery(zeroQuery),
		DefaultLibrary + "BridgeMamaSubscription_hasWildcards":             bridge.HandleQuery(zeroQuery),
		DefaultLibrary + "BridgeMamaSubscription_isTportDisconnected":      bridge.HandleQuery(zeroQuery),
		DefaultLibrary + "Payload_init":                                    bridge.Op(okOp),
		DefaultLibrary + "Entitlement_createSubscription":                  bridge.HandleOp(okHandle),
		DefaultLibrary + "Entitlement_destroySubscription":                 bridge.HandleOp(okHandle),
		DefaultLibrary + "Entitlement_setSubscriptionType":                 bridge.HandleArgOp(okHandleArg),
		DefaultLibrary + "Entitlement_handleNewSubscription":               bridge.HandleOp(okHandle),
		DefaultLibrary + "Entitlement_registerSubjectContext":              bridge.HandleNameOp(okHandleName),
		DefaultLibrary + "Plugin_shutdownHook":                             bridge.Op(okOp),
	}
}

// noopEntitlementSymbols is an entitlement bridge that permits everything.
func noopEntitlementSymbols() static.Symbols {
	return static.Symbols{
		NoopEntitlement + "Entitlement_setup":     bridge.Op(okOp),
		NoopEntitlement + "Entitlement_tearDown":  bridge.Op(okOp),
		NoopEntitlement + "Entitlement_isAllowed": bridge.HandleNameOp(okHandleName),
	}
}

// registerBuiltins adds the built-in libraries unless the table already
// carries libraries of the same names.
func registerBuiltins(st *static.Loader) {
	if !st.Has(DefaultLibrary) {
		st.Register(DefaultLibrary, defaultSymbols())
	}
	if !st.Has(NoopEntitlement) {
		st.Register(NoopEntitlement, noopEntitlementSymbols())
	}
}
