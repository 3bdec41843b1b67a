// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/irsdk/internal/irtest"
)

func TestDump(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "session.ibt")
	err := irtest.CreateCapture(fname, 3)
	if err != nil {
		t.Fatalf("could not create fixture: %+v", err)
	}

	xmain(io.Discard, []string{"-vars", "-var=Speed", "-info=WeekendInfo", fname})
}

func TestProcess(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "session.ibt")
	err := irtest.CreateCapture(fname, 3)
	if err != nil {
		t.Fatalf("could not create fixture: %+v", err)
	}

	head := "=== " + fname + ` ===
version:         2
tick rate:      60 Hz
start date:  2024-05-26T13:00:00Z
session:     [10.000, 10.033] s
laps:            1
records:         3
variables:       9
`

	for _, tc := range []struct {
		name string
		opts options
		want string
		err  string
	}{
		{
			name: "header",
			want: head,
		},
		{
			name: "series",
			opts: options{name: "Gear"},
			want: head + `--- Gear  ---
       0 0
       1 1
       2 2
`,
		},
		{
			name: "series-array",
			opts: options{name: "CarIdxLap"},
			want: head + `--- CarIdxLap  ---
       0 [0 1 0]
       1 [0 1 0]
       2 [0 1 0]
`,
		},
		{
			name: "info-scalar",
			opts: options{info: "DriverInfo.Drivers[1].CarScreenName"},
			want: head + `--- DriverInfo.Drivers[1].CarScreenName ---
Porsche 911 GT3 R
`,
		},
		{
			name: "info-map",
			opts: options{info: "WeekendInfo.WeekendOptions"},
			want: head + `--- WeekendInfo.WeekendOptions ---
NumStarters: 2
`,
		},
		{
			name: "unknown-var",
			opts: options{name: "DoesNotExist"},
			err:  `unknown variable "DoesNotExist"`,
		},
		{
			name: "unknown-info",
			opts: options{info: "WeekendInfo.Nope"},
			err:  `unknown session info path "WeekendInfo.Nope"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := process(out, fname, tc.opts)
			switch {
			case err != nil && tc.err != "":
				if got, want := err.Error(), tc.err; got != want {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
				}
			case err != nil && tc.err == "":
				t.Fatalf("could not ibt-dump: %+v", err)
			case err == nil && tc.err == "":
				if got, want := out.String(), tc.want; got != want {
					t.Fatalf("invalid ibt-dump output:\ngot:\n%s\nwant:\n%s\n", got, want)
				}
			case err == nil && tc.err != "":
				t.Fatalf("expected an error: %q", tc.err)
			}
		})
	}
}

func TestRunOrder(t *testing.T) {
	dir := t.TempDir()
	var fnames []string
	for _, name := range []string{"a.ibt", "b.ibt", "c.ibt"} {
		fname := filepath.Join(dir, name)
		err := irtest.CreateCapture(fname, 2)
		if err != nil {
			t.Fatalf("could not create fixture: %+v", err)
		}
		fnames = append(fnames, fname)
	}

	out := new(strings.Builder)
	err := run(out, fnames, options{})
	if err != nil {
		t.Fatalf("could not dump files: %+v", err)
	}

	txt := out.String()
	prev := -1
	for _, fname := range fnames {
		i := strings.Index(txt, "=== "+fname+" ===")
		if i < 0 || i < prev {
			t.Fatalf("report for %q missing or out of order:\n%s", fname, txt)
		}
		prev = i
	}

	err = run(io.Discard, append(fnames, filepath.Join(dir, "missing.ibt")), options{})
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
