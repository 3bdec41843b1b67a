// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package telem decodes the binary telemetry layout shared by the
// simulator's live memory region and its on-disk captures.
//
// A layout starts with a fixed 112 bytes header, followed (somewhere in the
// byte source) by a table of variable descriptors, a session-info text block
// and one or more snapshot buffers. All integers are little-endian.
package telem // import "github.com/go-lpc/irsdk/telem"

import (
	"errors"
	"io"
)

const (
	HeaderSize    = 112 // size of the layout header
	VarHeaderSize = 144 // size of one variable descriptor record
	MaxBufs       = 4   // maximum number of rotating buffers

	StatusConnected = 1 // status bit set while the producer is live
)

const (
	varNameLen = 32
	varDescLen = 64
	varUnitLen = 32
)

var (
	ErrNotConnected = errors.New("telem: not connected")
	ErrFormat       = errors.New("telem: invalid format")
	ErrTornRead     = errors.New("telem: torn read")
	ErrOutOfRange   = errors.New("telem: index out of range")
	ErrBounds       = errors.New("telem: read out of bounds")
)

// Source is a randomly-readable byte region of known length.
// *bytes.Reader and *mmap.Handle are Sources.
type Source interface {
	io.ReaderAt
	Len() int
}
