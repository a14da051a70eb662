// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/pkg/bridge"
)

type fakeCallable func(args []any, nret int) ([]any, error)

func (f fakeCallable) Call(_ context.Context, args []any, nret int) ([]any, error) {
	return f(args, nret)
}

func TestConvertSymbol_GoValues(t *testing.T) {
	opType := reflect.TypeOf(bridge.Op(nil))
	plain := func() bridge.Status { return bridge.StatusTimeout }

	v, err := convertSymbol(context.Background(), plain, opType, "x")
	require.NoError(t, err)
	assert.Equal(t, bridge.StatusTimeout, v.Interface().(bridge.Op)())

	ptr := &plain
	v, err = convertSymbol(context.Background(), ptr, opType, "x")
	require.NoError(t, err)
	assert.Equal(t, bridge.StatusTimeout, v.Interface().(bridge.Op)())

	_, err = convertSymbol(context.Background(), 42, opType, "x")
	assert.Error(t, err)

	_, err = convertSymbol(context.Background(), func(int) {}, opType, "x")
	assert.Error(t, err)

	var nilFn func() bridge.Status
	_, err = convertSymbol(context.Background(), nilFn, opType, "x")
	assert.Error(t, err)
}

func TestConvertSymbol_Callable(t *testing.T) {
	t.Run("marshals arguments and results", func(t *testing.T) {
		var got []any
		c := fakeCallable(func(args []any, nret int) ([]any, error) {
			got = args
			require.Equal(t, 1, nret)
			return []any{int64(bridge.StatusNotEntitled)}, nil
		})
		v, err := convertSymbol(context.Background(), c, reflect.TypeOf(bridge.HandleNameOp(nil)), "x")
		require.NoError(t, err)

		status := v.Interface().(bridge.HandleNameOp)(5, "SUBJECT")
		assert.Equal(t, bridge.StatusNotEntitled, status)
		assert.Equal(t, []any{uint64(5), "SUBJECT"}, got)
	})

	t.Run("missing results are zero", func(t *testing.T) {
		c := fakeCallable(func([]any, int) ([]any, error) { return nil, nil })
		v, err := convertSymbol(context.Background(), c, reflect.TypeOf(bridge.StringOp(nil)), "x")
		require.NoError(t, err)
		assert.Empty(t, v.Interface().(bridge.StringOp)())
	})

	t.Run("call failure becomes a status", func(t *testing.T) {
		c := fakeCallable(func([]any, int) ([]any, error) { return nil, errors.New("boom") })
		v, err := convertSymbol(context.Background(), c, reflect.TypeOf(bridge.Op(nil)), "x")
		require.NoError(t, err)
		assert.Equal(t, bridge.StatusSystem, v.Interface().(bridge.Op)())
	})

	t.Run("coded failure keeps its status", func(t *testing.T) {
		c := fakeCallable(func([]any, int) ([]any, error) { return nil, bridge.StatusTimeout.Err() })
		v, err := convertSymbol(context.Background(), c, reflect.TypeOf(bridge.Op(nil)), "x")
		require.NoError(t, err)
		assert.Equal(t, bridge.StatusTimeout, v.Interface().(bridge.Op)())
	})

	t.Run("bad result type", func(t *testing.T) {
		c := fakeCallable(func([]any, int) ([]any, error) { return []any{"not a number"}, nil })
		v, err := convertSymbol(context.Background(), c, reflect.TypeOf(bridge.Op(nil)), "x")
		require.NoError(t, err)
		assert.Equal(t, bridge.StatusSystem, v.Interface().(bridge.Op)())
	})

	t.Run("non scalar signature", func(t *testing.T) {
		c := fakeCallable(func([]any, int) ([]any, error) { return nil, nil })
		_, err := convertSymbol(context.Background(), c, reflect.TypeOf(func() *bridge.LegacyMiddleware { return nil }), "x")
		assert.Error(t, err)
	})
}

func TestConvertSymbol_NullAddress(t *testing.T) {
	_, err := convertSymbol(context.Background(), uintptr(0), reflect.TypeOf(bridge.Op(nil)), "x")
	assert.Error(t, err)
}

func TestCheckVersion(t *testing.T) {
	host := semver.MustParse("6.3.1")
	tests := []struct {
		minimum string
		wantErr bool
	}{
		{"", false},
		{"6.3.1", false},
		{"6.3", false},
		{"6.3.2", true},
		{"7", true},
		{">= 6.0, < 7.0", false},
		{"^7.0", true},
		{"garbage!", true},
	}
	for _, tt := range tests {
		err := checkVersion("x", tt.minimum, host)
		if tt.wantErr {
			assert.True(t, bridge.IsStatus(err, bridge.StatusVersionMismatch), "%q: %v", tt.minimum, err)
			continue
		}
		assert.NoError(t, err, tt.minimum)
	}
}

func TestSymbols_DryRun(t *testing.T) {
	for _, k := range Kinds() {
		infos, err := Symbols(k)
		require.NoError(t, err)
		require.NotEmpty(t, infos, k.String())
		seen := make(map[string]bool, len(infos))
		for _, info := range infos {
			assert.False(t, seen[info.Func], "%s declared twice", info.Func)
			seen[info.Func] = true
			assert.Empty(t, info.Resolved)
			assert.Equal(t, reflect.Func, info.Type.Kind())
		}
		for _, probe := range probes[k] {
			assert.True(t, seen[probe], "%s probe %s is not a declared symbol", k, probe)
		}
	}

	_, err := Symbols(KindUnknown)
	assert.True(t, bridge.IsStatus(err, bridge.StatusInvalidArg))
}
