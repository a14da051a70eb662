// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

// AssertStatus asserts that err carries exactly the bridge status want.
func AssertStatus(t *testing.T, err error, want bridge.Status) {
	t.Helper()
	require.Error(t, err, "expected an error carrying %s", want)
	assert.Equal(t, want, bridge.StatusOf(err), "error: %v", err)
}

// AssertStatusClass asserts that err carries want or a status of class want.
func AssertStatusClass(t *testing.T, err error, want bridge.Status) {
	t.Helper()
	require.Error(t, err, "expected an error of class %s", want)
	assert.True(t, bridge.IsStatus(err, want), "got %s, want class %s: %v", bridge.StatusOf(err), want, err)
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}
