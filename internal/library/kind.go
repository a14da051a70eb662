// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// Kind is the category of a bridge.
type Kind int

// Bridge kinds. KindUnknown asks Load to classify the library.
const (
	KindUnknown Kind = iota
	KindMiddleware
	KindPayload
	KindEntitlement
	KindPlugin
)

// kinds lists the concrete kinds in dependency order: payloads are needed by
// middlewares, entitlements and plugins observe both.
var kinds = [...]Kind{KindPayload, KindMiddleware, KindEntitlement, KindPlugin}

// teardownOrder is the reverse dependency order used when draining.
var teardownOrder = [...]Kind{KindPlugin, KindEntitlement, KindMiddleware, KindPayload}

// Kinds returns the concrete kinds.
func Kinds() []Kind {
	return append([]Kind(nil), kinds[:]...)
}

// String returns the kind name used in property keys.
func (k Kind) String() string {
	switch k {
	case KindMiddleware:
		return "middleware"
	case KindPayload:
		return "payload"
	case KindEntitlement:
		return "entitlement"
	case KindPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a concrete kind.
func (k Kind) Valid() bool {
	return k >= KindMiddleware && k <= KindPlugin
}

// ParseKind parses a kind name. "" and "unknown" parse as KindUnknown.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return KindUnknown, nil
	case "middleware":
		return KindMiddleware, nil
	case "payload":
		return KindPayload, nil
	case "entitlement":
		return KindEntitlement, nil
	case "plugin":
		return KindPlugin, nil
	default:
		return KindUnknown, oops.In("library").Code(bridge.StatusInvalidArg.Code()).
			With("kind", s).Errorf("unknown library kind %q", s)
	}
}

// DefaultLibrary is the built-in library supplying default<FuncName>
// fallbacks. Its name is reserved.
const DefaultLibrary = "default"

// NoopEntitlement is the built-in entitlement bridge that permits everything.
const NoopEntitlement = "noop"

// reservedName reports whether name collides with a property scope.
func reservedName(name string) bool {
	if name == DefaultLibrary {
		return true
	}
	for _, k := range kinds {
		if name == k.String() {
			return true
		}
	}
	return false
}
