// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func layoutFrom(t *testing.T, vhs []VarHeader, bufLen int32) []byte {
	t.Helper()

	hdr := Header{
		NumVars:         int32(len(vhs)),
		VarHeaderOffset: HeaderSize,
		NumBuf:          1,
		BufLen:          bufLen,
	}
	hdr.VarBufs[0].BufOffset = HeaderSize + int32(len(vhs))*VarHeaderSize
	hdr.SessionInfoOffset = hdr.VarBufs[0].BufOffset

	buf := new(bytes.Buffer)
	enc := NewEncoder(buf)
	err := enc.EncodeHeader(hdr)
	if err != nil {
		t.Fatalf("could not encode header: %+v", err)
	}
	for _, vh := range vhs {
		err = enc.EncodeVar(vh)
		if err != nil {
			t.Fatalf("could not encode var %q: %+v", vh.Name, err)
		}
	}
	buf.Write(make([]byte, bufLen))
	return buf.Bytes()
}

func TestParseVars(t *testing.T) {
	want := []VarHeader{
		{Type: Double, Offset: 0, Count: 1, Name: "SessionTime", Desc: "Seconds since session start", Unit: "s"},
		{Type: Float, Offset: 8, Count: 1, Name: "Speed", Desc: "GPS vehicle speed", Unit: "m/s"},
		{Type: Int, Offset: 12, Count: 64, Name: "CarIdxLap", Desc: "Laps started by car index", Unit: ""},
		{Type: BitField, Offset: 268, Count: 1, Name: "SessionFlags", Desc: "Session flags", Unit: "irsdk_Flags"},
		{Type: Bool, Offset: 272, Count: 1, Name: "IsOnTrack", Desc: "1=Car on track physics running", Unit: ""},
		{Type: Char, Offset: 273, Count: 3, Name: "Tag", Desc: "", Unit: ""},
		{Type: Float, Offset: 276, Count: 1, CountAsTime: true, Name: "LapLastLapTime", Unit: "s"},
	}

	raw := layoutFrom(t, want, 280)
	src := bytes.NewReader(raw)

	hdr, err := ParseHeader(src)
	if err != nil {
		t.Fatalf("could not parse header: %+v", err)
	}

	vars, err := ParseVars(src, hdr)
	if err != nil {
		t.Fatalf("could not parse vars: %+v", err)
	}

	if got, want := vars.Len(), len(want); got != want {
		t.Fatalf("invalid number of vars: got=%d, want=%d", got, want)
	}

	if got, want := vars.Headers(), want; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid var headers:\ngot= %+v\nwant=%+v", got, want)
	}

	names := []string{"SessionTime", "Speed", "CarIdxLap", "SessionFlags", "IsOnTrack", "Tag", "LapLastLapTime"}
	if got, want := vars.Names(), names; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid names:\ngot= %q\nwant=%q", got, want)
	}

	vh, ok := vars.Lookup("CarIdxLap")
	if !ok {
		t.Fatalf("could not find CarIdxLap")
	}
	if got, want := vh.Size(), 64*4; got != want {
		t.Fatalf("invalid CarIdxLap size: got=%d, want=%d", got, want)
	}

	if _, ok := vars.Lookup("DoesNotExist"); ok {
		t.Fatalf("unexpected variable DoesNotExist")
	}
}

func TestParseVarsErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		vhs    []VarHeader
		bufLen int32
		want   string
	}{
		{
			name: "duplicate",
			vhs: []VarHeader{
				{Type: Float, Offset: 0, Count: 1, Name: "Speed"},
				{Type: Float, Offset: 4, Count: 1, Name: "Speed"},
			},
			bufLen: 8,
			want:   `telem: duplicate variable "Speed": telem: invalid format`,
		},
		{
			name: "unknown-type",
			vhs: []VarHeader{
				{Type: VarType(6), Offset: 0, Count: 1, Name: "Weird"},
			},
			bufLen: 8,
			want:   `telem: variable "Weird" has unknown type tag 6: telem: invalid format`,
		},
		{
			name: "zero-count",
			vhs: []VarHeader{
				{Type: Int, Offset: 0, Count: 0, Name: "Gear"},
			},
			bufLen: 8,
			want:   `telem: variable "Gear" has invalid count 0: telem: invalid format`,
		},
		{
			name: "outside-snapshot",
			vhs: []VarHeader{
				{Type: Double, Offset: 4, Count: 1, Name: "SessionTime"},
			},
			bufLen: 8,
			want:   `telem: variable "SessionTime" [4, +8] outside snapshot (len=8): telem: invalid format`,
		},
		{
			name: "array-outside-snapshot",
			vhs: []VarHeader{
				{Type: Float, Offset: 0, Count: 3, Name: "CarIdxRPM"},
			},
			bufLen: 8,
			want:   `telem: variable "CarIdxRPM" [0, +12] outside snapshot (len=8): telem: invalid format`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := bytes.NewReader(layoutFrom(t, tc.vhs, tc.bufLen))
			hdr, err := ParseHeader(src)
			if err != nil {
				t.Fatalf("could not parse header: %+v", err)
			}

			_, err = ParseVars(src, hdr)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("error does not wrap ErrFormat: %+v", err)
			}
			if got, want := err.Error(), tc.want; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}
