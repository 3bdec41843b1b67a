// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides read-only memory-mapped byte regions.
package mmap // import "github.com/go-lpc/irsdk/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a read-only view over a memory-mapped region.
type Handle struct {
	data  []byte
	unmap func([]byte) error
}

// HandleFrom returns a handle over an already mapped region.
// Closing the handle does not unmap data.
func HandleFrom(data []byte) *Handle {
	return newHandle(data, nil)
}

func newHandle(data []byte, unmap func([]byte) error) *Handle {
	h := &Handle{data: data, unmap: unmap}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	if h.unmap == nil {
		return nil
	}
	return h.unmap(data)
}

// Len returns the length of the underlying memory-mapped region.
func (h *Handle) Len() int {
	return len(h.data)
}

// At returns the byte at index i.
func (h *Handle) At(i int) byte {
	return h.data[i]
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
