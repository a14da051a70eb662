// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/pkg/bridge"
	"github.com/holomush/bridgehost/pkg/errutil"
)

func TestInstanceID_ReloadGetsLaterID(t *testing.T) {
	f := newFixture(t)
	f.register(library.KindPlugin, "plug", nil)

	first := f.load("plug", library.KindPlugin).InstanceID()
	require.NoError(t, f.reg.Unload(f.ctx, "plug", library.KindPlugin))
	second := f.load("plug", library.KindPlugin).InstanceID()

	assert.NotEqual(t, first, second)
	assert.Negative(t, first.Compare(second), "later loads sort after earlier ones")
}

func TestParseInstanceID(t *testing.T) {
	f := newFixture(t)
	f.register(library.KindPlugin, "plug", nil)
	lib := f.load("plug", library.KindPlugin)

	id, err := library.ParseInstanceID(lib.InstanceID().String())
	require.NoError(t, err)
	assert.Equal(t, lib.InstanceID(), id)

	_, err = library.ParseInstanceID("not-a-ulid")
	errutil.AssertStatus(t, err, bridge.StatusInvalidArg)
}
