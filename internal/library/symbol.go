// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/ebitengine/purego"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
)

var statusType = reflect.TypeOf(bridge.StatusOK)

// convertSymbol turns a resolved symbol into a function value of type t.
func convertSymbol(ctx context.Context, sym dl.Symbol, t reflect.Type, name string) (reflect.Value, error) {
	switch s := sym.(type) {
	case uintptr:
		return nativeFunc(s, t, name)
	case dl.Callable:
		return callableFunc(ctx, s, t, name)
	}

	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Pointer && v.Type().Elem().Kind() == reflect.Func {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("symbol %s is a nil function pointer", name)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("symbol %s is %T, not a function", name, sym)
	}
	if v.IsNil() {
		return reflect.Value{}, fmt.Errorf("symbol %s is a nil function", name)
	}
	if v.Type() == t {
		return v, nil
	}
	if v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("symbol %s has type %s, want %s", name, v.Type(), t)
}

// nativeFunc binds a code address with purego.
func nativeFunc(addr uintptr, t reflect.Type, name string) (v reflect.Value, err error) {
	if addr == 0 {
		return reflect.Value{}, fmt.Errorf("symbol %s resolved to a null address", name)
	}
	if err := checkWireSignature(t); err != nil {
		return reflect.Value{}, fmt.Errorf("symbol %s: %w", name, err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("symbol %s cannot be bound as %s: %v", name, t, r)
		}
	}()
	fn := reflect.New(t)
	purego.RegisterFunc(fn.Interface(), addr)
	return fn.Elem(), nil
}

// callableFunc wraps a Callable into a typed function. Call failures are
// logged and reported through the function's status result when it has one.
func callableFunc(ctx context.Context, c dl.Callable, t reflect.Type, name string) (reflect.Value, error) {
	if err := checkWireSignature(t); err != nil {
		return reflect.Value{}, fmt.Errorf("symbol %s: %w", name, err)
	}
	nret := t.NumOut()
	fn := func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, a := range in {
			w, err := dl.ToWire(a)
			if err != nil {
				return failedCall(ctx, t, name, err)
			}
			args[i] = w
		}
		results, err := c.Call(ctx, args, nret)
		if err != nil {
			return failedCall(ctx, t, name, err)
		}
		out := make([]reflect.Value, nret)
		for i := range out {
			var w any
			if i < len(results) {
				w = results[i]
			}
			v, err := dl.FromWire(w, t.Out(i))
			if err != nil {
				return failedCall(ctx, t, name, err)
			}
			out[i] = v
		}
		return out
	}
	return reflect.MakeFunc(t, fn), nil
}

func failedCall(ctx context.Context, t reflect.Type, name string, err error) []reflect.Value {
	slog.WarnContext(ctx, "bridge call failed", "symbol", name, "error", err)
	status := bridge.StatusOf(err)
	if status.OK() {
		status = bridge.StatusPlatform
	}
	out := make([]reflect.Value, t.NumOut())
	for i := range out {
		if t.Out(i) == statusType {
			out[i] = reflect.ValueOf(status)
			continue
		}
		out[i] = reflect.Zero(t.Out(i))
	}
	return out
}

// checkWireSignature rejects function types whose arguments or results
// cannot cross a language or process boundary.
func checkWireSignature(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("%s is not a function type", t)
	}
	for i := 0; i < t.NumIn(); i++ {
		if !wireKind(t.In(i).Kind()) {
			return fmt.Errorf("argument %d of %s is not a scalar", i, t)
		}
	}
	for i := 0; i < t.NumOut(); i++ {
		if !wireKind(t.Out(i).Kind()) {
			return fmt.Errorf("result %d of %s is not a scalar", i, t)
		}
	}
	return nil
}

func wireKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Bool, reflect.String:
		return true
	default:
		return false
	}
}
