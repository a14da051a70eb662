// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dl

import (
	"fmt"
	"math"
	"reflect"
)

// ToWire converts an argument or result into its wire form: int64 for signed
// integers, uint64 for unsigned integers and uintptr-backed handles, float64,
// bool or string. Other kinds are rejected.
func ToWire(v reflect.Value) (any, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("unsupported wire kind %s", v.Kind())
	}
}

// FromWire converts a wire value into a value of type t. Numbers convert
// across integer and float kinds so scripting runtimes that only know one
// number type can answer any integer slot. A nil wire value yields the zero
// value of t.
func FromWire(w any, t reflect.Type) (reflect.Value, error) {
	if w == nil {
		return reflect.Zero(t), nil
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := wireInt(w)
		if err != nil {
			return out, err
		}
		if out.OverflowInt(n) {
			return out, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, ok := w.(uint64)
		if !ok {
			n, err := wireInt(w)
			if err != nil {
				return out, err
			}
			if n < 0 {
				return out, fmt.Errorf("value %d overflows %s", n, t)
			}
			u = uint64(n)
		}
		if out.OverflowUint(u) {
			return out, fmt.Errorf("value %d overflows %s", u, t)
		}
		out.SetUint(u)
	case reflect.Float32, reflect.Float64:
		switch n := w.(type) {
		case float64:
			out.SetFloat(n)
		case int64:
			out.SetFloat(float64(n))
		case uint64:
			out.SetFloat(float64(n))
		default:
			return out, fmt.Errorf("cannot convert %T to %s", w, t)
		}
	case reflect.Bool:
		b, ok := w.(bool)
		if !ok {
			return out, fmt.Errorf("cannot convert %T to %s", w, t)
		}
		out.SetBool(b)
	case reflect.String:
		s, ok := w.(string)
		if !ok {
			return out, fmt.Errorf("cannot convert %T to %s", w, t)
		}
		out.SetString(s)
	default:
		return out, fmt.Errorf("unsupported wire kind %s", t.Kind())
	}
	return out, nil
}

func wireInt(w any) (int64, error) {
	switch n := w.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", w)
	}
}
