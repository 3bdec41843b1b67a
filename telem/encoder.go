// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder writes layout structures to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
	}
}

// EncodeHeader writes the 112 bytes layout header.
func (enc *Encoder) EncodeHeader(hdr Header) error {
	enc.writeI32(hdr.Version)
	enc.writeI32(hdr.Status)
	enc.writeI32(hdr.TickRate)
	enc.writeI32(hdr.SessionInfoUpdate)
	enc.writeI32(hdr.SessionInfoLen)
	enc.writeI32(hdr.SessionInfoOffset)
	enc.writeI32(hdr.NumVars)
	enc.writeI32(hdr.VarHeaderOffset)
	enc.writeI32(hdr.NumBuf)
	enc.writeI32(hdr.BufLen)
	enc.pad(2 * 4)
	for _, buf := range hdr.VarBufs {
		enc.writeI32(buf.TickCount)
		enc.writeI32(buf.BufOffset)
		enc.pad(2 * 4)
	}
	if enc.err != nil {
		return fmt.Errorf("telem: could not encode header: %w", enc.err)
	}
	return nil
}

// EncodeDiskHeader writes the 32 bytes capture sub-header.
func (enc *Encoder) EncodeDiskHeader(disk DiskHeader) error {
	enc.writeI64(disk.StartDate.Unix())
	enc.writeF64(disk.StartTime)
	enc.writeF64(disk.EndTime)
	enc.writeI32(disk.LapCount)
	enc.writeI32(disk.RecordCount)
	if enc.err != nil {
		return fmt.Errorf("telem: could not encode disk header: %w", enc.err)
	}
	return nil
}

// EncodeVar writes one 144 bytes variable descriptor record.
func (enc *Encoder) EncodeVar(vh VarHeader) error {
	enc.writeI32(int32(vh.Type))
	enc.writeI32(vh.Offset)
	enc.writeI32(vh.Count)
	v := byte(0)
	if vh.CountAsTime {
		v = 1
	}
	enc.write([]byte{v, 0, 0, 0})
	enc.writeStr(vh.Name, varNameLen)
	enc.writeStr(vh.Desc, varDescLen)
	enc.writeStr(vh.Unit, varUnitLen)
	if enc.err != nil {
		return fmt.Errorf("telem: could not encode variable %q: %w", vh.Name, enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func (enc *Encoder) writeI32(v int32) {
	const n = 4
	binary.LittleEndian.PutUint32(enc.buf[:n], uint32(v))
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeI64(v int64) {
	const n = 8
	binary.LittleEndian.PutUint64(enc.buf[:n], uint64(v))
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeF64(v float64) {
	enc.writeI64(int64(math.Float64bits(v)))
}

func (enc *Encoder) writeStr(s string, n int) {
	p := make([]byte, n)
	copy(p, s)
	enc.write(p)
}

func (enc *Encoder) pad(n int) {
	enc.write(make([]byte, n))
}

// MarshalBinary encodes the header into its 112 bytes representation.
func (hdr Header) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := NewEncoder(buf).EncodeHeader(hdr)
	return buf.Bytes(), err
}

// MarshalBinary encodes the descriptor into its 144 bytes record.
func (vh VarHeader) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := NewEncoder(buf).EncodeVar(vh)
	return buf.Bytes(), err
}

// Put stores v into snapshot p at the location described by vh.
//
// v must match the declared type: string for Char, bool, int32, uint32,
// float32 or float64 for scalars, and slices of those for arrays.
func Put(p []byte, vh VarHeader, v any) error {
	off := int(vh.Offset)
	if off < 0 || off+vh.Size() > len(p) {
		return fmt.Errorf("telem: variable %q does not fit in %d bytes: %w", vh.Name, len(p), ErrBounds)
	}
	dst := p[off : off+vh.Size()]

	orig := v
	mismatch := func() error {
		return fmt.Errorf("telem: cannot store %T into %s[%d] variable %q", orig, vh.Type, vh.Count, vh.Name)
	}

	switch x := v.(type) {
	case bool:
		v = []bool{x}
	case int32:
		v = []int32{x}
	case uint32:
		v = []uint32{x}
	case float32:
		v = []float32{x}
	case float64:
		v = []float64{x}
	}

	switch v := v.(type) {
	case string:
		if vh.Type != Char {
			return mismatch()
		}
		for i := range dst {
			dst[i] = 0
		}
		copy(dst, v)
	case []bool:
		if vh.Type != Bool || len(v) != int(vh.Count) {
			return mismatch()
		}
		for i, b := range v {
			dst[i] = 0
			if b {
				dst[i] = 1
			}
		}
	case []int32:
		if vh.Type != Int || len(v) != int(vh.Count) {
			return mismatch()
		}
		for i, x := range v {
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(x))
		}
	case []uint32:
		if vh.Type != BitField || len(v) != int(vh.Count) {
			return mismatch()
		}
		for i, x := range v {
			binary.LittleEndian.PutUint32(dst[4*i:], x)
		}
	case []float32:
		if vh.Type != Float || len(v) != int(vh.Count) {
			return mismatch()
		}
		for i, x := range v {
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(x))
		}
	case []float64:
		if vh.Type != Double || len(v) != int(vh.Count) {
			return mismatch()
		}
		for i, x := range v {
			binary.LittleEndian.PutUint64(dst[8*i:], math.Float64bits(x))
		}
	default:
		return mismatch()
	}
	return nil
}
