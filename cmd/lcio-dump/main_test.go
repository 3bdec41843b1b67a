// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/internal/irtest"
	"github.com/go-lpc/irsdk/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func createLCIO(t *testing.T, n int) string {
	t.Helper()

	tmp := t.TempDir()
	fname := filepath.Join(tmp, "session.ibt")
	err := irtest.CreateCapture(fname, n)
	if err != nil {
		t.Fatalf("could not create capture: %+v", err)
	}

	f, err := ibt.Open(fname)
	if err != nil {
		t.Fatalf("could not open capture: %+v", err)
	}
	defer f.Close()

	oname := filepath.Join(tmp, "session.slcio")
	w, err := lcio.Create(oname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	err = xcnv.IBT2LCIO(w, f, 42, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not convert capture: %+v", err)
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}
	return oname
}

func TestProcess(t *testing.T) {
	fname := createLCIO(t, 2)

	var out bytes.Buffer
	err := process(&out, fname, []string{"Lap", "Speed", "Tag"})
	if err != nil {
		t.Fatalf("could not dump LCIO file: %+v", err)
	}

	want := `=== run 42 (IRSDK) ===
tick rate:      60 Hz
start date:  2024-05-26T13:00:00Z
variables:       9
--- event 0 (t=10.000 s) ---
Lap = 1
Speed = 0 [m/s]
Tag = rec000
--- event 1 (t=10.017 s) ---
Lap = 1
Speed = 1 [m/s]
Tag = rec001
`
	if got := out.String(); got != want {
		t.Fatalf("invalid output:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestProcessAllVars(t *testing.T) {
	fname := createLCIO(t, 1)

	var out bytes.Buffer
	err := process(&out, fname, nil)
	if err != nil {
		t.Fatalf("could not dump LCIO file: %+v", err)
	}

	for _, line := range []string{
		"CarIdxLap = [0 1 0]\n",
		"IsOnTrack = true\n",
		"SessionFlags = 268435456 [irsdk_Flags]\n",
	} {
		if !strings.Contains(out.String(), line) {
			t.Fatalf("missing %q in output:\n%s", line, out.String())
		}
	}
}

func TestProcessUnknownVar(t *testing.T) {
	fname := createLCIO(t, 1)

	err := process(io.Discard, fname, []string{"Nope"})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got, want := err.Error(), `unknown variable "Nope"`; got != want {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}
}
