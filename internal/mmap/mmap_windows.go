// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package mmap

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Open maps the named file read-only.
func Open(fname string) (*Handle, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmap: could not stat %q: %w", fname, err)
	}
	size := fi.Size()
	if size == 0 {
		return HandleFrom([]byte{}), nil
	}

	h, err := windows.CreateFileMapping(
		windows.Handle(f.Fd()), nil, windows.PAGE_READONLY,
		uint32(size>>32), uint32(size), nil,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not create mapping for %q: %w", fname, err)
	}
	return view(h, int(size))
}

var procOpenFileMapping = windows.NewLazySystemDLL("kernel32.dll").NewProc("OpenFileMappingW")

// OpenShared maps the named shared memory region of the given size
// read-only, as exported by another process.
// OpenShared fails when no process exports that region.
func OpenShared(name string, size int) (*Handle, error) {
	ptr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("mmap: invalid mapping name %q: %w", name, err)
	}

	r, _, err := procOpenFileMapping.Call(
		uintptr(windows.FILE_MAP_READ), 0, uintptr(unsafe.Pointer(ptr)),
	)
	if r == 0 {
		return nil, fmt.Errorf("mmap: could not open mapping %q: %w", name, err)
	}
	return view(windows.Handle(r), size)
}

func view(h windows.Handle, size int) (*Handle, error) {
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map view: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	unmap := func(p []byte) error {
		return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&p[0])))
	}
	return newHandle(data, unmap), nil
}
