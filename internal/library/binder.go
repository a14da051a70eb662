// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// SymbolInfo describes one entry point of a dispatch table.
type SymbolInfo struct {
	// Func is the entry point name without the library prefix, such as
	// "Bridge_open".
	Func string
	// Required entry points must resolve for the bind to succeed.
	Required bool
	// Type is the Go function type of the slot.
	Type reflect.Type
	// Resolved is the symbol that supplied the slot. It is empty when the
	// slot stayed unset.
	Resolved string
}

// Binder resolves the entry points of one library into a dispatch table.
//
// Each entry point is looked up as "<library><Func>", then as
// "default<Func>" in the built-in default library, and otherwise keeps the
// zero value. Missing required entry points are collected and reported
// together by Err.
//
// A Binder without a library is a dry run: it records the declared entry
// points and resolves nothing.
type Binder struct {
	ctx        context.Context
	name       string
	lib        dl.Library
	defaults   dl.Library
	host       *semver.Version
	minVersion string

	symbols []SymbolInfo
	missing []string
	errs    []error
}

func newBinder(ctx context.Context, name string, lib, defaults dl.Library) *Binder {
	return &Binder{
		ctx:      context.WithoutCancel(ctx),
		name:     name,
		lib:      lib,
		defaults: defaults,
	}
}

// dryRun reports whether the binder only enumerates symbols.
func (b *Binder) dryRun() bool {
	return b.lib == nil
}

// Symbols returns the entry points declared so far.
func (b *Binder) Symbols() []SymbolInfo {
	return append([]SymbolInfo(nil), b.symbols...)
}

// Missing returns the required symbols that did not resolve.
func (b *Binder) Missing() []string {
	return append([]string(nil), b.missing...)
}

// Err reports every missing required entry point and every entry point that
// resolved to an unusable symbol. It returns nil when the table is complete.
func (b *Binder) Err() error {
	if len(b.missing) == 0 && len(b.errs) == 0 {
		return nil
	}
	e := oops.In("binder").Code(bridge.StatusNoBridgeImpl.Code()).With("library", b.name)
	if len(b.missing) > 0 {
		e = e.With("missing", b.Missing())
	}
	if len(b.errs) == 0 {
		return e.Errorf("library %s is missing required symbols: %s", b.name, strings.Join(b.missing, ", "))
	}
	msg := fmt.Sprintf("library %s has unusable symbols", b.name)
	if len(b.missing) > 0 {
		msg += " and is missing " + strings.Join(b.missing, ", ")
	}
	return e.Wrapf(errors.Join(b.errs...), "%s", msg)
}

type candidate struct {
	lib  dl.Library
	name string
}

func (b *Binder) candidates(fn string) []candidate {
	c := []candidate{{lib: b.lib, name: b.name + fn}}
	if b.defaults != nil && b.name != DefaultLibrary {
		c = append(c, candidate{lib: b.defaults, name: DefaultLibrary + fn})
	}
	return c
}

// bind resolves one entry point into dst.
func bind[F any](b *Binder, dst *F, fn string, required bool) {
	t := reflect.TypeOf(dst).Elem()
	info := SymbolInfo{Func: fn, Required: required, Type: t}
	defer func() { b.symbols = append(b.symbols, info) }()

	if b.dryRun() {
		return
	}
	for _, c := range b.candidates(fn) {
		sym, err := c.lib.Lookup(c.name)
		if err != nil {
			if errors.Is(err, dl.ErrSymbolNotFound) {
				continue
			}
			b.errs = append(b.errs, fmt.Errorf("lookup %s: %w", c.name, err))
			return
		}
		v, err := convertSymbol(b.ctx, sym, t, c.name)
		if err != nil {
			b.errs = append(b.errs, err)
			return
		}
		reflect.ValueOf(dst).Elem().Set(v)
		info.Resolved = c.name
		return
	}
	if required {
		b.missing = append(b.missing, b.name+fn)
	}
}

// call invokes an initialization entry point of a freshly bound table.
func (b *Binder) call(fn string, op bridge.Op) error {
	if b.dryRun() || op == nil {
		return nil
	}
	if status := op(); !status.OK() {
		return oops.In("binder").Code(status.Code()).With("library", b.name).With("symbol", b.name+fn).
			Errorf("%s%s returned %s", b.name, fn, status)
	}
	return nil
}

// checkVersion enforces the library's minimum host version. The configured
// minimum wins over the one the bridge declares.
func (b *Binder) checkVersion(declared bridge.StringOp) error {
	if b.dryRun() || b.host == nil {
		return nil
	}
	minimum := b.minVersion
	if minimum == "" {
		minimum = declared.Call()
	}
	return checkVersion(b.name, strings.TrimSpace(minimum), b.host)
}

func checkVersion(name, minimum string, host *semver.Version) error {
	if minimum == "" {
		return nil
	}
	mismatch := func() error {
		return oops.In("binder").Code(bridge.StatusVersionMismatch.Code()).
			With("library", name).With("minimum", minimum).With("host", host.String()).
			Errorf("library %s requires host version %s, host is %s", name, minimum, host)
	}
	if v, err := semver.NewVersion(minimum); err == nil {
		if host.LessThan(v) {
			return mismatch()
		}
		return nil
	}
	c, err := semver.NewConstraint(minimum)
	if err != nil {
		return oops.In("binder").Code(bridge.StatusVersionMismatch.Code()).
			With("library", name).With("minimum", minimum).
			Wrapf(err, "library %s declares an invalid minimum version", name)
	}
	if !c.Check(host) {
		return mismatch()
	}
	return nil
}

// Symbols enumerates the entry points of a kind's dispatch table without
// binding anything.
func Symbols(kind Kind) ([]SymbolInfo, error) {
	b := newBinder(context.Background(), "", nil, nil)
	switch kind {
	case KindMiddleware:
		_, _ = buildMiddleware(b)
	case KindPayload:
		_, _ = buildPayload(b)
	case KindEntitlement:
		_, _ = buildEntitlement(b)
	case KindPlugin:
		_, _ = buildPlugin(b)
	default:
		return nil, oops.In("binder").Code(bridge.StatusInvalidArg.Code()).
			With("kind", kind.String()).Errorf("no dispatch table for kind %s", kind)
	}
	return b.Symbols(), nil
}
