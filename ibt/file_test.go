// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ibt_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/internal/irtest"
	"github.com/go-lpc/irsdk/telem"
	"github.com/google/go-cmp/cmp"
)

func openFixture(t *testing.T, n int) *ibt.File {
	t.Helper()

	fname := filepath.Join(t.TempDir(), "fixture.ibt")
	err := irtest.CreateCapture(fname, n)
	if err != nil {
		t.Fatalf("could not create fixture: %+v", err)
	}

	f, err := ibt.Open(fname)
	if err != nil {
		t.Fatalf("could not open fixture: %+v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestOpen(t *testing.T) {
	const n = 10
	f := openFixture(t, n)

	if got, want := f.Len(), n; got != want {
		t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
	}

	hdr := f.Header()
	if got, want := hdr.TickRate, int32(irtest.TickRate); got != want {
		t.Fatalf("invalid tick rate: got=%d, want=%d", got, want)
	}
	if got, want := hdr.BufLen, int32(irtest.BufLen); got != want {
		t.Fatalf("invalid record length: got=%d, want=%d", got, want)
	}

	want := telem.DiskHeader{
		StartDate:   irtest.StartDate,
		StartTime:   10,
		EndTime:     irtest.Values(n - 1)["SessionTime"].(float64),
		LapCount:    3,
		RecordCount: n,
	}
	if diff := cmp.Diff(want, f.DiskHeader()); diff != "" {
		t.Fatalf("invalid disk header (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(irtest.Vars, f.Vars().Headers()); diff != "" {
		t.Fatalf("invalid variables (-want +got):\n%s", diff)
	}
	if got, want := len(f.Names()), len(irtest.Vars); got != want {
		t.Fatalf("invalid number of names: got=%d, want=%d", got, want)
	}
}

func TestRecords(t *testing.T) {
	const n = 10
	f := openFixture(t, n)

	for i := 0; i < n; i++ {
		rec, err := f.At(i)
		if err != nil {
			t.Fatalf("could not read record %d: %+v", i, err)
		}
		raw, err := irtest.Record(i)
		if err != nil {
			t.Fatalf("could not build record %d: %+v", i, err)
		}
		if !bytes.Equal(rec.Bytes(), raw) {
			t.Fatalf("record %d differs", i)
		}

		for name, want := range irtest.Values(i) {
			got, err := rec.Get(name)
			if err != nil {
				t.Fatalf("could not decode %q from record %d: %+v", name, i, err)
			}
			if diff := cmp.Diff(want, got.Interface()); diff != "" {
				t.Fatalf("invalid %q in record %d (-want +got):\n%s", name, i, diff)
			}

			v, err := f.GetAt(i, name)
			if err != nil {
				t.Fatalf("could not get %q at %d: %+v", name, i, err)
			}
			if diff := cmp.Diff(want, v.Interface()); diff != "" {
				t.Fatalf("invalid %q at %d (-want +got):\n%s", name, i, diff)
			}
		}
	}

	v, err := f.Get("Speed")
	if err != nil {
		t.Fatalf("could not get last Speed: %+v", err)
	}
	if got, want := v.Float32(), float32(n-1); got != want {
		t.Fatalf("invalid last Speed: got=%v, want=%v", got, want)
	}
}

func TestOutOfRange(t *testing.T) {
	const n = 3
	f := openFixture(t, n)

	for _, i := range []int{-1, n, n + 10} {
		_, err := f.At(i)
		if !errors.Is(err, telem.ErrOutOfRange) {
			t.Fatalf("At(%d): invalid error: got=%+v, want=%+v", i, err, telem.ErrOutOfRange)
		}
		_, err = f.GetAt(i, "Speed")
		if !errors.Is(err, telem.ErrOutOfRange) {
			t.Fatalf("GetAt(%d): invalid error: got=%+v, want=%+v", i, err, telem.ErrOutOfRange)
		}
	}

	_, err := f.At(n)
	if got, want := err.Error(), "ibt: record 3 not in [0, 3): telem: index out of range"; got != want {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}
}

func TestUnknownVariable(t *testing.T) {
	f := openFixture(t, 2)

	v, err := f.Get("DoesNotExist")
	if err != nil {
		t.Fatalf("unknown variable should not fail: %+v", err)
	}
	if v.IsValid() {
		t.Fatalf("unknown variable should be absent")
	}

	s, err := f.All("DoesNotExist")
	if err != nil {
		t.Fatalf("unknown series should not fail: %+v", err)
	}
	if s != nil {
		t.Fatalf("unknown series should be absent")
	}

	rec, err := f.At(0)
	if err != nil {
		t.Fatalf("could not read record: %+v", err)
	}
	v, err = rec.Get("DoesNotExist")
	if err != nil || v.IsValid() {
		t.Fatalf("unknown variable should be absent: v=%v, err=%+v", v, err)
	}
}

func TestSeries(t *testing.T) {
	const n = 9
	f := openFixture(t, n)

	s, err := f.All("Lap")
	if err != nil {
		t.Fatalf("could not get Lap series: %+v", err)
	}
	if got, want := s.Len(), n; got != want {
		t.Fatalf("invalid series length: got=%d, want=%d", got, want)
	}
	if got, want := s.Var().Name, "Lap"; got != want {
		t.Fatalf("invalid series variable: got=%q, want=%q", got, want)
	}

	for pass := 0; pass < 2; pass++ {
		count := 0
		for i, v := range s.Values() {
			want, err := f.GetAt(i, "Lap")
			if err != nil {
				t.Fatalf("could not get Lap at %d: %+v", i, err)
			}
			if got, want := v.Int(), want.Int(); got != want {
				t.Fatalf("pass %d: invalid Lap at %d: got=%d, want=%d", pass, i, got, want)
			}
			at, err := s.At(i)
			if err != nil {
				t.Fatalf("could not get series value %d: %+v", i, err)
			}
			if got, want := at.Int(), v.Int(); got != want {
				t.Fatalf("pass %d: invalid At(%d): got=%d, want=%d", pass, i, got, want)
			}
			count++
		}
		if count != n {
			t.Fatalf("pass %d: invalid number of values: got=%d, want=%d", pass, count, n)
		}
		if err := s.Err(); err != nil {
			t.Fatalf("pass %d: invalid iteration error: %+v", pass, err)
		}
	}

	var laps []int32
	for _, v := range s.Values() {
		if v.Int() == 3 {
			break
		}
		laps = append(laps, v.Int())
	}
	if diff := cmp.Diff([]int32{1, 1, 1, 1, 2, 2, 2, 2}, laps); diff != "" {
		t.Fatalf("invalid early-stopped series (-want +got):\n%s", diff)
	}

	_, err = s.At(n)
	if !errors.Is(err, telem.ErrOutOfRange) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrOutOfRange)
	}
}

func TestSessionInfo(t *testing.T) {
	f := openFixture(t, 1)

	for _, tc := range []struct {
		path string
		want string
	}{
		{"WeekendInfo.TrackName", "spa 2024"},
		{"WeekendInfo.WeekendOptions.NumStarters", "2"},
		{"DriverInfo.Drivers[1].CarScreenName", "Porsche 911 GT3 R"},
		{"DriverInfo.Drivers.0.UserName", "Pace Car"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			node, ok, err := f.SessionInfo(tc.path)
			if err != nil {
				t.Fatalf("could not look up %q: %+v", tc.path, err)
			}
			if !ok {
				t.Fatalf("could not find %q", tc.path)
			}
			if got, want := node.String(), tc.want; got != want {
				t.Fatalf("invalid value: got=%q, want=%q", got, want)
			}
		})
	}

	_, ok, err := f.SessionInfo("DriverInfo.Drivers[2]")
	if err != nil || ok {
		t.Fatalf("out of range driver should be absent: ok=%v, err=%+v", ok, err)
	}
}

func TestClose(t *testing.T) {
	f := openFixture(t, 2)
	s, err := f.All("Speed")
	if err != nil {
		t.Fatalf("could not get Speed series: %+v", err)
	}

	err = f.Close()
	if err != nil {
		t.Fatalf("could not close capture: %+v", err)
	}

	_, err = f.At(0)
	if !errors.Is(err, telem.ErrNotConnected) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrNotConnected)
	}
	_, err = f.Get("Speed")
	if !errors.Is(err, telem.ErrNotConnected) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrNotConnected)
	}
	_, err = f.Get("DoesNotExist")
	if !errors.Is(err, telem.ErrNotConnected) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrNotConnected)
	}
	_, err = f.All("Speed")
	if !errors.Is(err, telem.ErrNotConnected) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrNotConnected)
	}
	_, _, err = f.SessionInfo("WeekendInfo")
	if !errors.Is(err, telem.ErrNotConnected) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrNotConnected)
	}

	for range s.Values() {
		t.Fatalf("closed series should not yield values")
	}
	if err := s.Err(); !errors.Is(err, telem.ErrNotConnected) {
		t.Fatalf("invalid iteration error: got=%+v, want=%+v", err, telem.ErrNotConnected)
	}
}

func TestNewReaderInMemory(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "mem.ibt")
	err := irtest.CreateCapture(fname, 5)
	if err != nil {
		t.Fatalf("could not create fixture: %+v", err)
	}
	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read fixture: %+v", err)
	}

	// trailing partial record is ignored.
	raw = append(raw, make([]byte, irtest.BufLen/2)...)

	f, err := ibt.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("could not open in-memory capture: %+v", err)
	}
	if got, want := f.Len(), 5; got != want {
		t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
	}
}

func TestNewReaderErrors(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "bad.ibt")
	err := irtest.CreateCapture(fname, 1)
	if err != nil {
		t.Fatalf("could not create fixture: %+v", err)
	}
	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read fixture: %+v", err)
	}

	for _, tc := range []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"truncated-header", raw[:64]},
		{"no-record", raw[:len(raw)-irtest.BufLen]},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ibt.NewReader(bytes.NewReader(tc.raw))
			if !errors.Is(err, telem.ErrFormat) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, telem.ErrFormat)
			}
		})
	}
}
