// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package mmap

import (
	"fmt"
	"runtime"
)

// OpenShared maps a named shared memory region.
// Named regions only exist on windows: elsewhere, use Open on a file
// exporting the region (e.g. under /dev/shm).
func OpenShared(name string, size int) (*Handle, error) {
	return nil, fmt.Errorf("mmap: named shared memory %q not supported on %s", name, runtime.GOOS)
}
