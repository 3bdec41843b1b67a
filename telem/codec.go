// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"bytes"
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

// Decode decodes count elements of type typ, starting at offset in p.
//
// Char values are decoded as one NUL-terminated string of at most count
// bytes. Other types with count > 1 are decoded as slices.
func Decode(p []byte, typ VarType, offset, count int) (Value, error) {
	sz := typ.Size()
	if sz == 0 {
		return Value{}, xerrors.Errorf("telem: unknown type tag %d: %w", int32(typ), ErrFormat)
	}
	if count < 1 {
		return Value{}, xerrors.Errorf("telem: invalid element count %d: %w", count, ErrFormat)
	}
	if offset < 0 || offset+sz*count > len(p) {
		return Value{}, xerrors.Errorf(
			"telem: %s[%d] at offset %d exceeds %d bytes window: %w",
			typ, count, offset, len(p), ErrBounds,
		)
	}
	raw := p[offset : offset+sz*count]

	if typ == Char {
		return Value{typ: typ, n: count, v: cstring(raw)}, nil
	}

	if count == 1 {
		return Value{typ: typ, n: 1, v: decode1(raw, typ)}, nil
	}

	var v any
	switch typ {
	case Bool:
		vs := make([]bool, count)
		for i := range vs {
			vs[i] = raw[i] != 0
		}
		v = vs
	case Int:
		vs := make([]int32, count)
		for i := range vs {
			vs[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		v = vs
	case BitField:
		vs := make([]uint32, count)
		for i := range vs {
			vs[i] = binary.LittleEndian.Uint32(raw[4*i:])
		}
		v = vs
	case Float:
		vs := make([]float32, count)
		for i := range vs {
			vs[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		v = vs
	case Double:
		vs := make([]float64, count)
		for i := range vs {
			vs[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
		v = vs
	}
	return Value{typ: typ, n: count, v: v}, nil
}

func decode1(raw []byte, typ VarType) any {
	switch typ {
	case Bool:
		return raw[0] != 0
	case Int:
		return int32(binary.LittleEndian.Uint32(raw))
	case BitField:
		return binary.LittleEndian.Uint32(raw)
	case Float:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw))
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw))
	}
	panic("unreachable")
}

// DecodeVar decodes the variable described by vh out of snapshot p.
func DecodeVar(p []byte, vh VarHeader) (Value, error) {
	v, err := Decode(p, vh.Type, int(vh.Offset), int(vh.Count))
	if err != nil {
		return v, xerrors.Errorf("telem: could not decode %q: %w", vh.Name, err)
	}
	return v, nil
}

func cstring(p []byte) string {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	return string(p)
}
