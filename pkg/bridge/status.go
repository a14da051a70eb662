// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Status is the outcome code shared by every bridge entry point and every
// host operation.
type Status int32

// Status codes. The numeric values are part of the bridge ABI and must not be
// reordered.
const (
	StatusOK                Status = 0
	StatusNoMem             Status = 1
	StatusPlatform          Status = 2
	StatusSystem            Status = 3
	StatusNullArg           Status = 4
	StatusInvalidArg        Status = 5
	StatusNotFound          Status = 6
	StatusTimeout           Status = 7
	StatusNotEntitled       Status = 8
	StatusNoBridgeImpl      Status = 9
	StatusInvalidQueue      Status = 10
	StatusNotImplemented    Status = 11
	StatusResourceExhausted Status = 12
	StatusVersionMismatch   Status = 13
	StatusDuplicateID       Status = 14
	StatusNotOpened         Status = 15
	StatusNotStarted        Status = 16
)

var statusNames = map[Status]string{
	StatusOK:                "OK",
	StatusNoMem:             "NOMEM",
	StatusPlatform:          "PLATFORM",
	StatusSystem:            "SYSTEM",
	StatusNullArg:           "NULL_ARG",
	StatusInvalidArg:        "INVALID_ARG",
	StatusNotFound:          "NOT_FOUND",
	StatusTimeout:           "TIMEOUT",
	StatusNotEntitled:       "NOT_ENTITLED",
	StatusNoBridgeImpl:      "NO_BRIDGE_IMPL",
	StatusInvalidQueue:      "INVALID_QUEUE",
	StatusNotImplemented:    "NOT_IMPLEMENTED",
	StatusResourceExhausted: "RESOURCE_EXHAUSTED",
	StatusVersionMismatch:   "VERSION_MISMATCH",
	StatusDuplicateID:       "DUPLICATE_ID",
	StatusNotOpened:         "NOT_OPENED",
	StatusNotStarted:        "NOT_STARTED",
}

var codeToStatus = func() map[string]Status {
	m := make(map[string]Status, len(statusNames))
	for s, name := range statusNames {
		m[codePrefix+name] = s
	}
	return m
}()

const codePrefix = "BRIDGE_STATUS_"

// String returns the short status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}

// Code returns the error code carried by errors of this status.
func (s Status) Code() string {
	return codePrefix + s.String()
}

// Class folds kind-specific statuses into the generic status a caller should
// react to: version mismatches are a resolution failure, duplicate ids a
// platform failure and lifecycle misuse a system failure.
func (s Status) Class() Status {
	switch s {
	case StatusVersionMismatch:
		return StatusNoBridgeImpl
	case StatusDuplicateID:
		return StatusPlatform
	case StatusNotOpened, StatusNotStarted:
		return StatusSystem
	default:
		return s
	}
}

// OK reports whether s is StatusOK.
func (s Status) OK() bool {
	return s == StatusOK
}

// Err converts a status returned by a bridge into an error. It returns nil
// for StatusOK.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return oops.In("bridge").Code(s.Code()).Errorf("bridge returned %s", s)
}

// StatusOf recovers the Status carried by err. Nil maps to StatusOK, errors
// without a recognised code map to StatusSystem.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			if s, ok := codeToStatus[code]; ok {
				return s
			}
		}
	}
	var se statusError
	if errors.As(err, &se) {
		return se.Status()
	}
	return StatusSystem
}

// IsStatus reports whether err carries status s, comparing either the exact
// status or its class.
func IsStatus(err error, s Status) bool {
	got := StatusOf(err)
	return got == s || got.Class() == s
}

// statusError lets foreign error types participate in StatusOf.
type statusError interface {
	error
	Status() Status
}
