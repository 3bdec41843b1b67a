// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/internal/irtest"
	"github.com/go-lpc/irsdk/telem"
	"github.com/google/go-cmp/cmp"
	"go-hep.org/x/hep/lcio"
)

func TestIBT2LCIO(t *testing.T) {
	tmp := t.TempDir()

	for _, tc := range []struct {
		name string
		n    int
	}{
		{name: "one-record", n: 1},
		{name: "three-laps", n: 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			const run = 42
			msg := log.New(io.Discard, "", 0)

			fname := filepath.Join(tmp, tc.name+".ibt")
			err := irtest.CreateCapture(fname, tc.n)
			if err != nil {
				t.Fatalf("could not create fixture: %+v", err)
			}

			src, err := ibt.Open(fname)
			if err != nil {
				t.Fatalf("could not open fixture: %+v", err)
			}
			defer src.Close()

			lw, err := lcio.Create(fname + ".lcio")
			if err != nil {
				t.Fatalf("could not create LCIO file: %+v", err)
			}
			defer lw.Close()

			err = IBT2LCIO(lw, src, run, msg)
			if err != nil {
				t.Fatalf("could not convert to LCIO: %+v", err)
			}
			err = lw.Close()
			if err != nil {
				t.Fatalf("could not close LCIO file: %+v", err)
			}

			lr, err := lcio.Open(fname + ".lcio")
			if err != nil {
				t.Fatalf("could not open LCIO file: %+v", err)
			}
			defer lr.Close()

			oname := filepath.Join(tmp, tc.name+".out.ibt")
			err = LCIO2IBT(oname, lr, msg)
			if err != nil {
				t.Fatalf("could not convert to IBT: %+v", err)
			}

			dst, err := ibt.Open(oname)
			if err != nil {
				t.Fatalf("could not open round-tripped capture: %+v", err)
			}
			defer dst.Close()

			want, err := ibt.LayoutOf(src)
			if err != nil {
				t.Fatalf("could not get input layout: %+v", err)
			}
			got, err := ibt.LayoutOf(dst)
			if err != nil {
				t.Fatalf("could not get output layout: %+v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("invalid layout (-want +got):\n%s", diff)
			}

			if got, want := dst.Len(), src.Len(); got != want {
				t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
			}
			for i := 0; i < src.Len(); i++ {
				want, err := src.At(i)
				if err != nil {
					t.Fatalf("could not read input record %d: %+v", i, err)
				}
				got, err := dst.At(i)
				if err != nil {
					t.Fatalf("could not read output record %d: %+v", i, err)
				}
				if !bytes.Equal(got.Bytes(), want.Bytes()) {
					t.Fatalf("record %d differs", i)
				}
			}

			if diff := cmp.Diff(src.DiskHeader(), dst.DiskHeader()); diff != "" {
				t.Fatalf("invalid disk header (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPacking(t *testing.T) {
	for _, n := range []int{1, 3, 4, 5, 48, 49} {
		rec := make([]byte, n)
		for i := range rec {
			rec[i] = byte(i + 1)
		}

		raw := i32sFrom(nil, rec)
		if got, want := len(raw), (n+3)/4; got != want {
			t.Fatalf("n=%d: invalid number of words: got=%d, want=%d", n, got, want)
		}

		got := make([]byte, n)
		err := bytesFrom(got, raw)
		if err != nil {
			t.Fatalf("n=%d: could not unpack record: %+v", n, err)
		}
		if !bytes.Equal(got, rec) {
			t.Fatalf("n=%d: invalid round-trip:\ngot= %v\nwant=%v", n, got, rec)
		}
	}

	err := bytesFrom(make([]byte, 8), []int32{1})
	if !errors.Is(err, telem.ErrFormat) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrFormat)
	}
}

func TestLayoutFromLCIO(t *testing.T) {
	_, err := LayoutFromLCIO(lcio.RunHeader{})
	if !errors.Is(err, telem.ErrFormat) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrFormat)
	}

	_, err = LayoutFromLCIO(lcio.RunHeader{
		Params: lcio.Params{
			Ints: map[string][]int32{
				keyTickRate: {60},
				keyBufLen:   {8},
				keyVarTable: {4, 0, 1},
			},
		},
	})
	if got, want := err.Error(), `invalid variable table length 3: telem: invalid format`; got != want {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}
}
