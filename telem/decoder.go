// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"encoding/binary"
	"io"
	"math"
)

// decoder reads little-endian fields out of a byte slice.
// The first error is sticky.
type decoder struct {
	p   []byte
	c   int
	err error
}

func newDecoder(p []byte) *decoder {
	return &decoder{p: p}
}

func (dec *decoder) load(n int) []byte {
	if dec.err != nil {
		return nil
	}
	if dec.c+n > len(dec.p) {
		dec.err = io.ErrUnexpectedEOF
		return nil
	}
	p := dec.p[dec.c : dec.c+n]
	dec.c += n
	return p
}

func (dec *decoder) skip(n int) {
	_ = dec.load(n)
}

func (dec *decoder) readI32() int32 {
	p := dec.load(4)
	if p == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(p))
}

func (dec *decoder) readI64() int64 {
	p := dec.load(8)
	if p == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(p))
}

func (dec *decoder) readF64() float64 {
	p := dec.load(8)
	if p == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p))
}

func (dec *decoder) readBool() bool {
	p := dec.load(1)
	if p == nil {
		return false
	}
	return p[0] != 0
}

func (dec *decoder) readStr(n int) string {
	p := dec.load(n)
	if p == nil {
		return ""
	}
	return cstring(p)
}

// readAt reads exactly n bytes at offset off from src.
func readAt(src Source, off int64, n int) ([]byte, error) {
	p := make([]byte, n)
	_, err := src.ReadAt(p, off)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return p, nil
}
