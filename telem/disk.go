// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"time"

	"golang.org/x/xerrors"
)

// DiskHeaderSize is the size of the capture sub-header that follows
// the layout header in capture files.
const DiskHeaderSize = 32

// DiskHeader holds the capture-only session summary.
type DiskHeader struct {
	StartDate   time.Time // wall-clock date of the session start
	StartTime   float64   // session time of the first record, in seconds
	EndTime     float64   // session time of the last record, in seconds
	LapCount    int32
	RecordCount int32
}

// ParseDiskHeader parses the capture sub-header following the layout header.
func ParseDiskHeader(src Source) (DiskHeader, error) {
	var disk DiskHeader
	if src.Len() < HeaderSize+DiskHeaderSize {
		return disk, xerrors.Errorf(
			"telem: source too short for disk header (len=%d): %w",
			src.Len(), ErrFormat,
		)
	}
	raw, err := readAt(src, HeaderSize, DiskHeaderSize)
	if err != nil {
		return disk, xerrors.Errorf("telem: could not read disk header: %w", err)
	}

	dec := newDecoder(raw)
	disk.StartDate = time.Unix(dec.readI64(), 0).UTC()
	disk.StartTime = dec.readF64()
	disk.EndTime = dec.readF64()
	disk.LapCount = dec.readI32()
	disk.RecordCount = dec.readI32()
	return disk, dec.err
}

// VarBufTickOffset returns the byte offset, within the header, of the
// tick counter of the i-th rotating buffer.
func VarBufTickOffset(i int) int64 {
	const (
		varBufsOffset = 48
		varBufSize    = 16
	)
	return int64(varBufsOffset + i*varBufSize)
}
