// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package librarytest provides in-process bridge fakes for tests.
package librarytest

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/holomush/bridgehost/internal/dl/static"
	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Stub returns a symbol table implementing every entry point of kind for a
// library called name. Each stub returns zero values, which for statuses is
// bridge.StatusOK.
//
// Overrides are keyed by entry point name without the library prefix
// ("Bridge_start"). A nil override removes the entry point.
func Stub(kind library.Kind, name string, overrides map[string]any) static.Symbols {
	infos, err := library.Symbols(kind)
	if err != nil {
		panic(err)
	}
	syms := make(static.Symbols, len(infos))
	for _, info := range infos {
		if info.Func == "Bridge_createImpl" || info.Func == "Payload_createImpl" {
			continue
		}
		syms[name+info.Func] = zeroFunc(info.Type).Interface()
	}
	for fn, v := range overrides {
		if v == nil {
			delete(syms, name+fn)
			continue
		}
		syms[name+fn] = v
	}
	return syms
}

func zeroFunc(t reflect.Type) reflect.Value {
	return reflect.MakeFunc(t, func([]reflect.Value) []reflect.Value {
		out := make([]reflect.Value, t.NumOut())
		for i := range out {
			out[i] = reflect.Zero(t.Out(i))
		}
		return out
	})
}

// Middleware is a controllable middleware bridge. Its start entry point
// blocks until stop is called, like a real dispatch loop.
type Middleware struct {
	Name string

	// StartStatus, when not OK, makes start fail immediately.
	StartStatus bridge.Status
	// OpenStatus and CloseStatus are returned by open and close.
	OpenStatus  bridge.Status
	CloseStatus bridge.Status
	// Blocking makes start wait for stop.
	Blocking bool
	// DefaultPayloads is returned by getDefaultPayloadId.
	DefaultPayloads string

	Opens  atomic.Int32
	Closes atomic.Int32
	Starts atomic.Int32
	Stops  atomic.Int32

	mu      sync.Mutex
	running chan struct{}
	started chan struct{}
}

// NewMiddleware creates a non-blocking middleware fake.
func NewMiddleware(name string) *Middleware {
	return &Middleware{Name: name, started: make(chan struct{}, 16)}
}

// Symbols returns the fake's symbol table.
func (m *Middleware) Symbols(overrides map[string]any) static.Symbols {
	base := map[string]any{
		"Bridge_open": bridge.Op(func() bridge.Status {
			m.Opens.Add(1)
			return m.OpenStatus
		}),
		"Bridge_close": bridge.Op(func() bridge.Status {
			m.Closes.Add(1)
			return m.CloseStatus
		}),
		"Bridge_start": bridge.Op(m.start),
		"Bridge_stop":  bridge.Op(m.stop),
		"Bridge_getName": bridge.StringOp(func() string {
			return m.Name
		}),
		"Bridge_getVersion": bridge.StringOp(func() string {
			return "1.0.0"
		}),
		"Bridge_getDefaultPayloadId": bridge.StringOp(func() string {
			return m.DefaultPayloads
		}),
	}
	for k, v := range overrides {
		base[k] = v
	}
	return Stub(library.KindMiddleware, m.Name, base)
}

func (m *Middleware) start() bridge.Status {
	m.Starts.Add(1)
	if !m.StartStatus.OK() {
		return m.StartStatus
	}
	if !m.Blocking {
		m.signalStarted()
		return bridge.StatusOK
	}
	m.mu.Lock()
	running := make(chan struct{})
	m.running = running
	m.mu.Unlock()
	m.signalStarted()
	<-running
	return bridge.StatusOK
}

func (m *Middleware) stop() bridge.Status {
	m.Stops.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != nil {
		close(m.running)
		m.running = nil
	}
	return bridge.StatusOK
}

func (m *Middleware) signalStarted() {
	select {
	case m.started <- struct{}{}:
	default:
	}
}

// Started is signalled when start runs successfully. Signals beyond the
// channel's buffer are dropped.
func (m *Middleware) Started() <-chan struct{} {
	return m.started
}
