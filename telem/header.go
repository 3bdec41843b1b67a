// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"golang.org/x/xerrors"
)

// Header is the fixed-size layout header.
type Header struct {
	Version           int32
	Status            int32 // bitmask, see StatusConnected
	TickRate          int32 // ticks per second
	SessionInfoUpdate int32 // incremented each time the session info changes
	SessionInfoLen    int32
	SessionInfoOffset int32
	NumVars           int32
	VarHeaderOffset   int32
	NumBuf            int32
	BufLen            int32
	VarBufs           [MaxBufs]VarBuf
}

// VarBuf describes one rotating snapshot buffer.
type VarBuf struct {
	TickCount int32 // tick at which the buffer was last fully written
	BufOffset int32
}

// Connected reports whether the producer flagged the layout as live.
func (hdr Header) Connected() bool {
	return hdr.Status&StatusConnected != 0
}

// Latest returns the index of the buffer holding the highest tick.
func (hdr Header) Latest() int {
	n := int(hdr.NumBuf)
	if n > MaxBufs {
		n = MaxBufs
	}
	latest := 0
	for i := 1; i < n; i++ {
		if hdr.VarBufs[i].TickCount > hdr.VarBufs[latest].TickCount {
			latest = i
		}
	}
	return latest
}

// ParseHeader parses the layout header at the start of src and checks
// every region it declares lies within src.
func ParseHeader(src Source) (Header, error) {
	var hdr Header
	if src.Len() < HeaderSize {
		return hdr, xerrors.Errorf(
			"telem: source too short for header (len=%d, want>=%d): %w",
			src.Len(), HeaderSize, ErrFormat,
		)
	}
	raw, err := readAt(src, 0, HeaderSize)
	if err != nil {
		return hdr, xerrors.Errorf("telem: could not read header: %w", err)
	}
	hdr = decodeHeader(raw)

	err = hdr.validate(int64(src.Len()))
	if err != nil {
		return Header{}, err
	}
	return hdr, nil
}

// UnmarshalBinary decodes the header without any bounds validation.
func (hdr *Header) UnmarshalBinary(p []byte) error {
	if len(p) < HeaderSize {
		return xerrors.Errorf("telem: short header buffer (len=%d): %w", len(p), ErrFormat)
	}
	*hdr = decodeHeader(p)
	return nil
}

func decodeHeader(raw []byte) Header {
	var (
		hdr Header
		dec = newDecoder(raw)
	)
	hdr.Version = dec.readI32()
	hdr.Status = dec.readI32()
	hdr.TickRate = dec.readI32()
	hdr.SessionInfoUpdate = dec.readI32()
	hdr.SessionInfoLen = dec.readI32()
	hdr.SessionInfoOffset = dec.readI32()
	hdr.NumVars = dec.readI32()
	hdr.VarHeaderOffset = dec.readI32()
	hdr.NumBuf = dec.readI32()
	hdr.BufLen = dec.readI32()
	dec.skip(2 * 4)
	for i := range hdr.VarBufs {
		hdr.VarBufs[i].TickCount = dec.readI32()
		hdr.VarBufs[i].BufOffset = dec.readI32()
		dec.skip(2 * 4)
	}
	return hdr
}

func (hdr Header) validate(size int64) error {
	within := func(off, n int64) bool {
		return off >= 0 && n >= 0 && off+n <= size
	}

	switch {
	case hdr.NumBuf < 0 || hdr.NumBuf > MaxBufs:
		return xerrors.Errorf("telem: invalid number of buffers %d: %w", hdr.NumBuf, ErrFormat)
	case hdr.NumVars < 0:
		return xerrors.Errorf("telem: invalid number of variables %d: %w", hdr.NumVars, ErrFormat)
	case hdr.BufLen < 0:
		return xerrors.Errorf("telem: invalid buffer length %d: %w", hdr.BufLen, ErrFormat)
	}

	if !within(int64(hdr.VarHeaderOffset), int64(hdr.NumVars)*VarHeaderSize) {
		return xerrors.Errorf(
			"telem: variable table [%d, +%d*%d] outside source (len=%d): %w",
			hdr.VarHeaderOffset, hdr.NumVars, VarHeaderSize, size, ErrFormat,
		)
	}

	if !within(int64(hdr.SessionInfoOffset), int64(hdr.SessionInfoLen)) {
		return xerrors.Errorf(
			"telem: session info [%d, +%d] outside source (len=%d): %w",
			hdr.SessionInfoOffset, hdr.SessionInfoLen, size, ErrFormat,
		)
	}

	for i := 0; i < int(hdr.NumBuf); i++ {
		buf := hdr.VarBufs[i]
		if !within(int64(buf.BufOffset), int64(hdr.BufLen)) {
			return xerrors.Errorf(
				"telem: buffer %d [%d, +%d] outside source (len=%d): %w",
				i, buf.BufOffset, hdr.BufLen, size, ErrFormat,
			)
		}
	}
	return nil
}
