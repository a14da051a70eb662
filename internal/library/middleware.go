// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// MiddlewareLibrary is the closure of a middleware library.
//
// Counters are written with the library lock held and may be read
// atomically at any time.
type MiddlewareLibrary struct {
	id              byte
	table           *bridge.Middleware
	openCount       atomic.Int32
	startCount      atomic.Int32
	background      bool
	defaultPayloads []string
}

// MiddlewareManager supervises middleware bridges: the Closed, Opened and
// Started states and the transitions between them.
//
// Open, Close and Stop hold the manager lock for their whole critical
// section. The bridge's start entry point usually blocks until the bridge
// is stopped and runs outside every lock, so a Close racing a running Start
// is possible.
type MiddlewareManager struct {
	reg    *Registry
	tm     *TypeManager
	ids    idAssigner
	active atomic.Int32
}

// Compile-time interface check.
var _ kindFuncs = (*MiddlewareManager)(nil)

func newMiddlewareManager(r *Registry, tm *TypeManager) *MiddlewareManager {
	m := &MiddlewareManager{reg: r, tm: tm}
	m.ids = idAssigner{tm: tm, legacy: legacyMiddlewareIDs, idOf: func(lib *Library) byte {
		if ml, ok := lib.closure.(*MiddlewareLibrary); ok {
			return ml.id
		}
		return 0
	}}
	tm.funcs = m
	return m
}

// TypeManager returns the underlying manager.
func (m *MiddlewareManager) TypeManager() *TypeManager { return m.tm }

func (m *MiddlewareManager) create(lib *Library) {
	lib.closure = &MiddlewareLibrary{}
}

func (m *MiddlewareManager) activate(ctx context.Context, lib *Library) error {
	ml := lib.closure.(*MiddlewareLibrary)
	t, err := buildMiddleware(m.reg.binder(ctx, lib))
	if err != nil {
		return err
	}
	id, err := m.ids.assign(lib, 0)
	if err != nil {
		lib.mu.Lock()
		ml.table = t
		m.release(ml)
		lib.mu.Unlock()
		return err
	}
	lib.mu.Lock()
	ml.id = id
	ml.table = t
	lib.mu.Unlock()
	return nil
}

// deactivate force-closes a bridge that is still open.
func (m *MiddlewareManager) deactivate(_ context.Context, lib *Library) error {
	ml := lib.closure.(*MiddlewareLibrary)
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if ml.openCount.Load() == 0 {
		m.release(ml)
		return nil
	}
	slog.Warn("unloading an open middleware bridge, closing it",
		"library", lib.name, "open_count", ml.openCount.Load(), "start_count", ml.startCount.Load())
	var err error
	if ml.startCount.Load() > 0 {
		if status := ml.table.Stop.Call(); !status.OK() {
			err = bridgeError(lib, "Bridge_stop", status)
		}
		ml.startCount.Store(0)
	}
	scratch := *ml.table
	if status := scratch.Close.Call(); !status.OK() && err == nil {
		err = bridgeError(lib, "Bridge_close", status)
	}
	ml.openCount.Store(0)
	m.active.Add(-1)
	m.release(ml)
	return err
}

// started reports whether lib is a middleware library with a running
// bridge.
func started(lib *Library) bool {
	ml, ok := lib.closure.(*MiddlewareLibrary)
	return ok && ml.startCount.Load() > 0
}

func (m *MiddlewareManager) destroy(lib *Library) {
	ml := lib.closure.(*MiddlewareLibrary)
	lib.mu.Lock()
	ml.table = nil
	ml.defaultPayloads = nil
	lib.mu.Unlock()
}

func (m *MiddlewareManager) describe(lib *Library, prop string) (string, bool) {
	ml := lib.closure.(*MiddlewareLibrary)
	lib.mu.Lock()
	t := ml.table
	lib.mu.Unlock()
	if t == nil {
		return "", false
	}
	switch prop {
	case property.Name:
		return t.GetName.Call(), t.GetName != nil
	case property.Version:
		return t.GetVersion.Call(), t.GetVersion != nil
	case property.MamaVersion:
		return t.GetMinVersion.Call(), t.GetMinVersion != nil
	default:
		return "", false
	}
}

// release discards the bound table, calling the bridge's shutdown hook.
// Must be called with lib.mu held.
func (m *MiddlewareManager) release(ml *MiddlewareLibrary) {
	if ml.table != nil && ml.table.State.Hooks.Shutdown != nil {
		ml.table.State.Hooks.Shutdown()
	}
	ml.table = nil
}

// closure returns the middleware closure of a loaded library.
func (m *MiddlewareManager) closure(lib *Library) (*MiddlewareLibrary, error) {
	if lib == nil {
		return nil, oops.In("middleware").Code(bridge.StatusNullArg.Code()).Errorf("library is nil")
	}
	ml, ok := lib.closure.(*MiddlewareLibrary)
	if !ok {
		return nil, oops.In("middleware").Code(bridge.StatusInvalidArg.Code()).
			With("library", lib.name).With("kind", lib.kind.String()).
			Errorf("%s is not a middleware library", lib)
	}
	return ml, nil
}

// loaded checks that lib has not been unloaded. Must be called with the
// manager lock held.
func (m *MiddlewareManager) loaded(lib *Library) error {
	if m.tm.libs[lib.name] != lib {
		return oops.In("middleware").Code(bridge.StatusNotFound.Code()).
			With("library", lib.name).Errorf("middleware library %s is no longer loaded", lib.name)
	}
	return nil
}

func spanAttrs(lib *Library) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("library.name", lib.name),
		attribute.String("library.kind", lib.kind.String()),
	)
}

// Open opens the bridge. The first open binds the dispatch table if Close
// discarded it, loads the bridge's default payloads and calls the bridge's
// open entry point; later opens only count.
//
// Default payloads are loaded with the middleware lock held, so observers
// of payload load signals must not call back into this manager.
func (m *MiddlewareManager) Open(ctx context.Context, lib *Library) (err error) {
	ml, err := m.closure(lib)
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "middleware.open", spanAttrs(lib))
	defer func() { endSpan(span, err) }()

	m.tm.mu.Lock()
	defer m.tm.mu.Unlock()
	if err := m.loaded(lib); err != nil {
		return err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()

	if ml.openCount.Load() > 0 {
		ml.openCount.Add(1)
		return nil
	}
	if ml.table == nil {
		t, err := buildMiddleware(m.reg.binder(ctx, lib))
		if err != nil {
			return err
		}
		ml.table = t
	}
	payloads, err := m.loadDefaultPayloads(ctx, lib, ml.table)
	if err != nil {
		return err
	}
	if status := ml.table.Open.Call(); !status.OK() {
		return bridgeError(lib, "Bridge_open", status)
	}
	ml.defaultPayloads = payloads
	ml.openCount.Store(1)
	m.active.Add(1)
	slog.Debug("middleware opened", "library", lib.name)
	return nil
}

// loadDefaultPayloads loads the payloads the bridge names as its defaults.
// Entries are payload library names or single character payload ids.
func (m *MiddlewareManager) loadDefaultPayloads(ctx context.Context, lib *Library, t *bridge.Middleware) ([]string, error) {
	declared := t.GetDefaultPayloadID.Call()
	if declared == "" {
		return nil, nil
	}
	var names []string
	for _, entry := range strings.Split(declared, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name := payloadNameFor(entry)
		if _, err := m.reg.Load(ctx, name, KindPayload, ""); err != nil {
			return nil, oops.In("middleware").With("library", lib.name).With("payload", name).
				Wrapf(err, "load default payload %s of %s", name, lib.name)
		}
		names = append(names, name)
	}
	return names, nil
}

// payloadNameFor maps a legacy payload id to its library name.
func payloadNameFor(entry string) string {
	if len(entry) != 1 {
		return entry
	}
	for name, id := range legacyPayloadIDs {
		if id == entry[0] {
			return name
		}
	}
	return entry
}

// Close closes the bridge. The last close stops a started bridge first,
// which is logged, then calls the bridge's close entry point on a copy of
// the table and discards the table.
func (m *MiddlewareManager) Close(ctx context.Context, lib *Library) (err error) {
	ml, err := m.closure(lib)
	if err != nil {
		return err
	}
	_, span := tracer.Start(ctx, "middleware.close", spanAttrs(lib))
	defer func() { endSpan(span, err) }()

	m.tm.mu.Lock()
	if err := m.loaded(lib); err != nil {
		m.tm.mu.Unlock()
		return err
	}
	lib.mu.Lock()

	unlock := func() {
		lib.mu.Unlock()
		m.tm.mu.Unlock()
	}

	switch n := ml.openCount.Load(); {
	case n == 0:
		unlock()
		slog.Warn("close of a middleware bridge that is not open", "library", lib.name)
		return oops.In("middleware").Code(bridge.StatusNotOpened.Code()).
			With("library", lib.name).Errorf("middleware %s is not open", lib.name)
	case n > 1:
		ml.openCount.Add(-1)
		unlock()
		return nil
	}

	stopped := false
	if ml.startCount.Load() > 0 {
		slog.Warn("closing a started middleware bridge, stopping it first",
			"library", lib.name, "start_count", ml.startCount.Load())
		if status := ml.table.Stop.Call(); !status.OK() {
			unlock()
			return bridgeError(lib, "Bridge_stop", status)
		}
		ml.startCount.Store(0)
		stopped = true
	}

	scratch := *ml.table
	if status := scratch.Close.Call(); !status.OK() {
		unlock()
		if stopped {
			m.tm.raise(m.tm.stopSignal, lib)
		}
		return bridgeError(lib, "Bridge_close", status)
	}
	m.release(ml)
	ml.defaultPayloads = nil
	ml.openCount.Store(0)
	m.active.Add(-1)
	unlock()

	if stopped {
		m.tm.raise(m.tm.stopSignal, lib)
	}
	slog.Debug("middleware closed", "library", lib.name)
	return nil
}

// Start starts the bridge, which must be open. The first start raises the
// start signal and then calls the bridge's start entry point outside every
// lock; nested starts only count. A failed start resets the start count.
func (m *MiddlewareManager) Start(ctx context.Context, lib *Library) (err error) {
	ml, err := m.closure(lib)
	if err != nil {
		return err
	}
	_, span := tracer.Start(ctx, "middleware.start", spanAttrs(lib))
	defer func() { endSpan(span, err) }()

	m.tm.mu.Lock()
	if err := m.loaded(lib); err != nil {
		m.tm.mu.Unlock()
		return err
	}
	lib.mu.Lock()
	if ml.openCount.Load() == 0 {
		lib.mu.Unlock()
		m.tm.mu.Unlock()
		return oops.In("middleware").Code(bridge.StatusInvalidQueue.Code()).
			With("library", lib.name).Errorf("middleware %s must be opened before it is started", lib.name)
	}
	if ml.startCount.Load() > 0 {
		ml.startCount.Add(1)
		lib.mu.Unlock()
		m.tm.mu.Unlock()
		return nil
	}
	ml.startCount.Store(1)
	t := ml.table
	lib.mu.Unlock()
	m.tm.mu.Unlock()

	m.tm.raise(m.tm.startSignal, lib)

	status := t.Start.Call()
	if hook := t.State.Hooks.StartComplete; hook != nil {
		hook(status)
	}
	if status.OK() {
		return nil
	}

	lib.mu.Lock()
	ml.startCount.Store(0)
	lib.mu.Unlock()
	return bridgeError(lib, "Bridge_start", status)
}

// StartInBackground runs Start on a new goroutine and calls done with its
// result. At most one background start may be in flight per library.
func (m *MiddlewareManager) StartInBackground(ctx context.Context, lib *Library, done func(*Library, error)) error {
	ml, err := m.closure(lib)
	if err != nil {
		return err
	}
	lib.mu.Lock()
	if ml.background {
		lib.mu.Unlock()
		return oops.In("middleware").Code(bridge.StatusSystem.Code()).
			With("library", lib.name).Errorf("middleware %s is already starting in the background", lib.name)
	}
	ml.background = true
	lib.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		err := m.Start(ctx, lib)
		if err != nil {
			slog.Warn("background start failed", "library", lib.name, "error", err)
		}
		lib.mu.Lock()
		ml.background = false
		lib.mu.Unlock()
		if done != nil {
			done(lib, err)
		}
	}()
	return nil
}

// Stop stops the bridge. Only the stop matching the first start calls the
// bridge's stop entry point and raises the stop signal; stopping a bridge
// that is not started is an error and does not reach the bridge.
func (m *MiddlewareManager) Stop(ctx context.Context, lib *Library) (err error) {
	ml, err := m.closure(lib)
	if err != nil {
		return err
	}
	_, span := tracer.Start(ctx, "middleware.stop", spanAttrs(lib))
	defer func() { endSpan(span, err) }()

	m.tm.mu.Lock()
	if err := m.loaded(lib); err != nil {
		m.tm.mu.Unlock()
		return err
	}
	lib.mu.Lock()

	switch n := ml.startCount.Load(); {
	case n == 0:
		lib.mu.Unlock()
		m.tm.mu.Unlock()
		slog.Warn("stop of a middleware bridge that is not started", "library", lib.name)
		return oops.In("middleware").Code(bridge.StatusNotStarted.Code()).
			With("library", lib.name).Errorf("middleware %s is not started", lib.name)
	case n > 1:
		ml.startCount.Add(-1)
		lib.mu.Unlock()
		m.tm.mu.Unlock()
		return nil
	}

	if status := ml.table.Stop.Call(); !status.OK() {
		lib.mu.Unlock()
		m.tm.mu.Unlock()
		return bridgeError(lib, "Bridge_stop", status)
	}
	ml.startCount.Store(0)
	lib.mu.Unlock()
	m.tm.mu.Unlock()

	m.tm.raise(m.tm.stopSignal, lib)
	slog.Debug("middleware stopped", "library", lib.name)
	return nil
}

// OpenCount returns how many times lib is open.
func (m *MiddlewareManager) OpenCount(lib *Library) int {
	ml, err := m.closure(lib)
	if err != nil {
		return 0
	}
	return int(ml.openCount.Load())
}

// StartCount returns how many times lib is started.
func (m *MiddlewareManager) StartCount(lib *Library) int {
	ml, err := m.closure(lib)
	if err != nil {
		return 0
	}
	return int(ml.startCount.Load())
}

// ActiveBridges returns the number of open middleware bridges.
func (m *MiddlewareManager) ActiveBridges() int {
	return int(m.active.Load())
}

// ID returns the single character id of lib.
func (m *MiddlewareManager) ID(lib *Library) (byte, error) {
	ml, err := m.closure(lib)
	if err != nil {
		return 0, err
	}
	m.tm.mu.RLock()
	defer m.tm.mu.RUnlock()
	return ml.id, nil
}

// ByID returns the middleware library holding id.
func (m *MiddlewareManager) ByID(id byte) (*Library, error) {
	return m.ids.byID(id)
}

// Table returns the bound dispatch table of an open library.
func (m *MiddlewareManager) Table(lib *Library) (*bridge.Middleware, error) {
	ml, err := m.closure(lib)
	if err != nil {
		return nil, err
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if ml.openCount.Load() == 0 || ml.table == nil {
		return nil, oops.In("middleware").Code(bridge.StatusNotOpened.Code()).
			With("library", lib.name).Errorf("middleware %s is not open", lib.name)
	}
	return ml.table, nil
}

// DefaultPayloads returns the payload libraries loaded for lib when it was
// opened.
func (m *MiddlewareManager) DefaultPayloads(lib *Library) []string {
	ml, err := m.closure(lib)
	if err != nil {
		return nil
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	return append([]string(nil), ml.defaultPayloads...)
}

// bridgeError turns a failed bridge status into an error carrying it.
func bridgeError(lib *Library, fn string, status bridge.Status) error {
	return oops.In("bridge").Code(status.Code()).
		With("library", lib.name).With("symbol", lib.name+fn).With("status", status.String()).
		Errorf("%s%s returned %s", lib.name, fn, status)
}
