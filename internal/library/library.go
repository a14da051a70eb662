// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/bridgehost/internal/dl"
)

// Library is one loaded bridge library. A Library exists only while its
// handle is open; its name is unique within its kind.
type Library struct {
	name       string
	kind       Kind
	path       string
	instanceID ulid.ULID
	handle     dl.Library

	// mu guards the closure's mutable state (counters, bound table).
	mu      sync.Mutex
	closure any
}

func newLibrary(name string, kind Kind, path string, handle dl.Library) *Library {
	return &Library{
		name:       name,
		kind:       kind,
		path:       path,
		instanceID: newInstanceID(),
		handle:     handle,
	}
}

// Name returns the library name.
func (l *Library) Name() string { return l.name }

// Kind returns the library kind.
func (l *Library) Kind() Kind { return l.kind }

// Path returns where the library was loaded from, empty for in-process
// libraries.
func (l *Library) Path() string { return l.path }

// InstanceID identifies this load of the library. Reloading a library yields
// a new id. Ids sort in load order.
func (l *Library) InstanceID() ulid.ULID { return l.instanceID }

// Handle returns the open dynamic library.
func (l *Library) Handle() dl.Library { return l.handle }

// String returns "kind/name".
func (l *Library) String() string {
	return l.kind.String() + "/" + l.name
}
