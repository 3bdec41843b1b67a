// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"fmt"
)

// VarType is the type tag of a telemetry variable.
type VarType int32

const (
	Char     VarType = 0 // 1 byte, text
	Bool     VarType = 1 // 1 byte
	Int      VarType = 2 // 4 bytes, signed
	BitField VarType = 3 // 4 bytes, mask
	Float    VarType = 4 // 4 bytes, IEEE-754
	Double   VarType = 5 // 8 bytes, IEEE-754
)

// Size returns the size in bytes of one element of type t,
// or 0 for an unknown type tag.
func (t VarType) Size() int {
	switch t {
	case Char, Bool:
		return 1
	case Int, BitField, Float:
		return 4
	case Double:
		return 8
	}
	return 0
}

func (t VarType) Valid() bool { return t.Size() != 0 }

func (t VarType) String() string {
	switch t {
	case Char:
		return "char"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case BitField:
		return "bitfield"
	case Float:
		return "float"
	case Double:
		return "double"
	}
	return fmt.Sprintf("VarType(%d)", int32(t))
}

// Value is a decoded telemetry value: a scalar or a fixed-length array
// of one of the six variable types.
//
// The zero Value is the absent value, reported for unknown variables.
// Accessors panic when called on a Value of another shape.
type Value struct {
	typ VarType
	n   int
	v   any // string, bool, int32, uint32, float32, float64 or a slice thereof
}

// IsValid reports whether v holds a decoded value.
func (v Value) IsValid() bool { return v.v != nil }

// Type returns the declared type of the value.
func (v Value) Type() VarType { return v.typ }

// Len returns the number of decoded elements.
// Char values are a single text element.
func (v Value) Len() int { return v.n }

// IsArray reports whether v holds more than one element.
func (v Value) IsArray() bool {
	_, text := v.v.(string)
	return v.n > 1 && !text
}

// Interface returns the underlying Go value.
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	if s, ok := v.v.(string); ok {
		return s
	}
	if v.v == nil {
		return "<absent>"
	}
	return fmt.Sprint(v.v)
}

func (v Value) Bool() bool { return mustAs[bool](v, "Bool") }
func (v Value) Int() int32 { return mustAs[int32](v, "Int") }
func (v Value) BitField() uint32 { return mustAs[uint32](v, "BitField") }
func (v Value) Float32() float32 { return mustAs[float32](v, "Float32") }
func (v Value) Float64() float64 { return mustAs[float64](v, "Float64") }
func (v Value) Bools() []bool { return mustAs[[]bool](v, "Bools") }
func (v Value) Ints() []int32 { return mustAs[[]int32](v, "Ints") }
func (v Value) BitFields() []uint32 { return mustAs[[]uint32](v, "BitFields") }
func (v Value) Float32s() []float32 { return mustAs[[]float32](v, "Float32s") }
func (v Value) Float64s() []float64 { return mustAs[[]float64](v, "Float64s") }
func (v Value) Text() string { return mustAs[string](v, "Text") }

func mustAs[T any](v Value, method string) T {
	x, ok := v.v.(T)
	if !ok {
		panic(fmt.Errorf("telem: call of Value.%s on %s value (len=%d)", method, v.typ, v.n))
	}
	return x
}
