// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package dl is the dynamic loading facility the bridge host consumes: open a
// library by name or path, resolve a symbol by name, close the library.
//
// Loaders for concrete library formats live in subpackages. A [Symbol] is
// whatever the loader can offer for a name:
//
//   - a Go value (function or pointer to function variable) for in-process
//     and Go plugin libraries;
//   - a uintptr code address for native shared objects;
//   - a [Callable] for libraries whose functions live outside the Go type
//     system (scripts, other processes).
package dl

import (
	"context"
	"errors"
)

// Symbol is a resolved library symbol.
type Symbol = any

// Callable is a symbol invoked through dynamic argument marshalling. Args and
// results use the wire forms produced by [ToWire].
type Callable interface {
	Call(ctx context.Context, args []any, nret int) ([]any, error)
}

// Library is an open library.
type Library interface {
	// Path returns where the library was opened from, empty for in-process
	// libraries.
	Path() string
	// Lookup resolves a symbol. It returns an error wrapping
	// ErrSymbolNotFound when the library does not export name.
	Lookup(name string) (Symbol, error)
	// Close releases the library. Symbols must not be used afterwards.
	Close() error
}

// Loader opens libraries.
type Loader interface {
	Open(ctx context.Context, name, path string) (Library, error)
}

// Sentinel errors for programmatic error checking.
var (
	// ErrSymbolNotFound is returned when a library does not export a symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrLibraryNotFound is returned when no file or registration matches a name.
	ErrLibraryNotFound = errors.New("library not found")
	// ErrLibraryClosed is returned when a closed library is used.
	ErrLibraryClosed = errors.New("library is closed")
	// ErrUnsupported is returned by loaders unavailable on this platform.
	ErrUnsupported = errors.New("library format not supported on this platform")
)
