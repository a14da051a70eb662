// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

// Handle is an opaque reference to an object owned by a bridge (a queue, a
// transport, a message...). Zero is never a valid handle.
type Handle uintptr

// Slot signatures shared by all dispatch tables.
type (
	// Op is a parameterless entry point such as open or start.
	Op func() Status
	// StringOp returns a string describing the bridge.
	StringOp func() string
	// HandleOp operates on a single object.
	HandleOp func(h Handle) Status
	// HandleArgOp operates on an object with one scalar or handle argument.
	HandleArgOp func(h Handle, arg uintptr) Status
	// HandleNameOp operates on an object with a name, topic or subject.
	HandleNameOp func(h Handle, name string) Status
	// HandleQuery reads a scalar or handle from an object.
	HandleQuery func(h Handle) uintptr
	// HandleStringQuery reads a string from an object.
	HandleStringQuery func(h Handle) string
	// FieldGetOp reads a named field of an object as a string.
	FieldGetOp func(h Handle, field string) string
	// FieldSetOp writes a named field of an object.
	FieldSetOp func(h Handle, field string, value string) Status
)

// call helpers used by the host when a slot may be unset.

// Call invokes op, reporting StatusNotImplemented when op is nil.
func (op Op) Call() Status {
	if op == nil {
		return StatusNotImplemented
	}
	return op()
}

// Call invokes op, returning "" when op is nil.
func (op StringOp) Call() string {
	if op == nil {
		return ""
	}
	return op()
}

// Call invokes op, reporting StatusNotImplemented when op is nil.
func (op HandleOp) Call(h Handle) Status {
	if op == nil {
		return StatusNotImplemented
	}
	return op(h)
}

// Call invokes op, reporting StatusNotImplemented when op is nil.
func (op HandleArgOp) Call(h Handle, arg uintptr) Status {
	if op == nil {
		return StatusNotImplemented
	}
	return op(h, arg)
}

// Call invokes op, reporting StatusNotImplemented when op is nil.
func (op HandleNameOp) Call(h Handle, name string) Status {
	if op == nil {
		return StatusNotImplemented
	}
	return op(h, name)
}
