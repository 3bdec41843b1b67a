// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	if got, want := h.At(1), byte(1); got != want {
		t.Fatalf("invalid value: got=%d, want=%d", got, want)
	}

	_, err := h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	p := make([]byte, 3)
	n, err := h.ReadAt(p, 2)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short read error: %+v", err)
	}
	if got, want := n, 2; got != want {
		t.Fatalf("invalid short read: got=%d, want=%d", got, want)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}

	_, err = h.ReadAt(p, 0)
	if !errors.Is(err, errClosed) {
		t.Fatalf("invalid read-at error after close: %+v", err)
	}
}

func TestOpen(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "region.bin")
	err := os.WriteFile(fname, []byte("telemetry"), 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}

	h, err := Open(fname)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}
	defer h.Close()

	if got, want := h.Len(), 9; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	p := make([]byte, 5)
	_, err = h.ReadAt(p, 4)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if got, want := string(p), "metry"; got != want {
		t.Fatalf("invalid content: got=%q, want=%q", got, want)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not unmap file: %+v", err)
	}

	_, err = Open(filepath.Join(t.TempDir(), "not-there"))
	if err == nil {
		t.Fatalf("expected an error opening a missing file")
	}
}

func TestOpenSharedMissing(t *testing.T) {
	h, err := OpenShared(`Local\irsdk-test-no-such-region`, 4096)
	if err == nil {
		_ = h.Close()
		t.Fatalf("opening a region nobody exports should fail")
	}
}
