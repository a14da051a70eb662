// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"reflect"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// Default capacities of a Signals set.
const (
	DefaultSignalCapacity = 256
	DefaultSlotCapacity   = 256
)

// SignalID identifies a signal within one Signals set.
type SignalID int

// Callback observes a signal. Callbacks are identified by value: registering
// a callback equal to one already registered replaces it. Implementations
// must therefore be comparable; wrap plain functions with NewCallback.
type Callback interface {
	// Notify is called with the library the signal concerns and the closure
	// given at registration. Returning false stops the fan-out.
	Notify(lib *Library, closure any) bool
}

// CallbackFunc is the function form of a Callback. Func values are not
// comparable, so Register rejects a bare CallbackFunc; pass it through
// NewCallback instead.
type CallbackFunc func(lib *Library, closure any) bool

// Notify calls f.
func (f CallbackFunc) Notify(lib *Library, closure any) bool { return f(lib, closure) }

type funcCallback struct {
	fn CallbackFunc
}

func (c *funcCallback) Notify(lib *Library, closure any) bool {
	return c.fn(lib, closure)
}

// NewCallback wraps fn into a Callback with its own identity. Keep the
// returned value to deregister it later.
func NewCallback(fn CallbackFunc) Callback {
	return &funcCallback{fn: fn}
}

type slot struct {
	cb      Callback
	closure any
}

type signal struct {
	slots []slot
}

// Signals is a bounded set of signals, each holding a bounded ordered list of
// slots. Signal ids are reused lowest first.
type Signals struct {
	mu        sync.Mutex
	signals   []*signal
	signalCap int
	slotCap   int
}

// NewSignals creates an empty set. Non-positive capacities select the
// defaults.
func NewSignals(signalCap, slotCap int) *Signals {
	if signalCap <= 0 {
		signalCap = DefaultSignalCapacity
	}
	if slotCap <= 0 {
		slotCap = DefaultSlotCapacity
	}
	return &Signals{signalCap: signalCap, slotCap: slotCap}
}

// Create allocates a signal at the lowest free id.
func (s *Signals) Create() (SignalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sig := range s.signals {
		if sig == nil {
			s.signals[i] = &signal{}
			return SignalID(i), nil
		}
	}
	if len(s.signals) >= s.signalCap {
		return -1, oops.In("signals").Code(bridge.StatusResourceExhausted.Code()).
			With("capacity", s.signalCap).Errorf("signal capacity %d reached", s.signalCap)
	}
	s.signals = append(s.signals, &signal{})
	return SignalID(len(s.signals) - 1), nil
}

// Destroy releases a signal and all its slots.
func (s *Signals) Destroy(id SignalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(id); err != nil {
		return err
	}
	s.signals[id] = nil
	return nil
}

// Register adds cb to a signal, or replaces the closure of an equal
// callback already registered.
func (s *Signals) Register(id SignalID, cb Callback, closure any) error {
	if cb == nil {
		return oops.In("signals").Code(bridge.StatusNullArg.Code()).Errorf("callback is nil")
	}
	if !reflect.TypeOf(cb).Comparable() {
		return oops.In("signals").Code(bridge.StatusInvalidArg.Code()).
			With("type", reflect.TypeOf(cb).String()).
			Hint("wrap functions with library.NewCallback").
			Errorf("callback of type %T is not comparable", cb)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sig, err := s.lookup(id)
	if err != nil {
		return err
	}
	for i := range sig.slots {
		if sig.slots[i].cb == cb {
			sig.slots[i].closure = closure
			return nil
		}
	}
	if len(sig.slots) >= s.slotCap {
		return oops.In("signals").Code(bridge.StatusResourceExhausted.Code()).
			With("signal", int(id)).With("capacity", s.slotCap).
			Errorf("slot capacity %d reached on signal %d", s.slotCap, id)
	}
	sig.slots = append(sig.slots, slot{cb: cb, closure: closure})
	return nil
}

// Deregister removes cb from a signal.
func (s *Signals) Deregister(id SignalID, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, err := s.lookup(id)
	if err != nil {
		return err
	}
	for i := range sig.slots {
		if sig.slots[i].cb == cb {
			sig.slots = append(sig.slots[:i], sig.slots[i+1:]...)
			return nil
		}
	}
	return oops.In("signals").Code(bridge.StatusNotFound.Code()).
		With("signal", int(id)).Errorf("callback not registered on signal %d", id)
}

// Raise calls every slot of a signal in registration order until one returns
// false. Slots are snapshotted first, so callbacks may register, deregister
// or raise without deadlocking.
func (s *Signals) Raise(id SignalID, lib *Library) error {
	s.mu.Lock()
	sig, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	slots := append([]slot(nil), sig.slots...)
	s.mu.Unlock()

	for _, sl := range slots {
		if !sl.cb.Notify(lib, sl.closure) {
			break
		}
	}
	return nil
}

// Slots returns the number of slots registered on a signal.
func (s *Signals) Slots(id SignalID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return len(sig.slots), nil
}

// Len returns the number of live signals.
func (s *Signals) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sig := range s.signals {
		if sig != nil {
			n++
		}
	}
	return n
}

// Reset destroys every signal.
func (s *Signals) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = nil
}

// lookup must be called with s.mu held.
func (s *Signals) lookup(id SignalID) (*signal, error) {
	if id < 0 || int(id) >= len(s.signals) || s.signals[id] == nil {
		return nil, oops.In("signals").Code(bridge.StatusNotFound.Code()).
			With("signal", int(id)).Errorf("signal %d does not exist", id)
	}
	return s.signals[id], nil
}
