// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package irtest provides capture fixtures for tests.
package irtest // import "github.com/go-lpc/irsdk/internal/irtest"

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/telem"
)

const (
	TickRate  = 60
	BufLen    = 48
	LapLength = 4 // records per lap
)

var (
	StartDate = time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)

	Vars = []telem.VarHeader{
		{Name: "SessionTime", Type: telem.Double, Offset: 0, Count: 1, Desc: "Seconds since session start", Unit: "s"},
		{Name: "Lap", Type: telem.Int, Offset: 8, Count: 1, Desc: "Laps started count"},
		{Name: "LapLastLapTime", Type: telem.Float, Offset: 12, Count: 1, CountAsTime: true, Desc: "Players last lap time", Unit: "s"},
		{Name: "Speed", Type: telem.Float, Offset: 16, Count: 1, Desc: "GPS vehicle speed", Unit: "m/s"},
		{Name: "Gear", Type: telem.Int, Offset: 20, Count: 1, Desc: "-1=reverse  0=neutral  1..n=current gear"},
		{Name: "CarIdxLap", Type: telem.Int, Offset: 24, Count: 3, Desc: "Laps started by car index"},
		{Name: "SessionFlags", Type: telem.BitField, Offset: 36, Count: 1, Desc: "Session flags", Unit: "irsdk_Flags"},
		{Name: "IsOnTrack", Type: telem.Bool, Offset: 40, Count: 1, Desc: "1=Car on track physics running"},
		{Name: "Tag", Type: telem.Char, Offset: 41, Count: 7},
	}

	SessionInfo = []byte(`---
WeekendInfo:
 TrackName: spa 2024
 TrackDisplayName: Circuit de Spa-Francorchamps
 TrackID: 163
 WeekendOptions:
  NumStarters: 2
DriverInfo:
 DriverCarIdx: 1
 Drivers:
 - CarIdx: 0
   UserName: Pace Car
   CarScreenName: safety pcporsche911cup
 - CarIdx: 1
   UserName: Jane Doe
   CarScreenName: Porsche 911 GT3 R
...
`)
)

// Layout returns the layout of the fixture capture.
func Layout() ibt.Layout {
	return ibt.Layout{
		TickRate:    TickRate,
		BufLen:      BufLen,
		Vars:        Vars,
		SessionInfo: SessionInfo,
		StartDate:   StartDate,
	}
}

// Values returns the values of the i-th fixture record.
func Values(i int) map[string]any {
	lap := int32(1 + i/LapLength)
	last := float32(0)
	if lap > 1 {
		last = 90.5 - float32(lap)
	}
	return map[string]any{
		"SessionTime":    10 + float64(i)/TickRate,
		"Lap":            lap,
		"LapLastLapTime": last,
		"Speed":          float32(i),
		"Gear":           int32(i % 6),
		"CarIdxLap":      []int32{0, lap, lap - 1},
		"SessionFlags":   uint32(0x10000000 | i),
		"IsOnTrack":      i%2 == 0,
		"Tag":            fmt.Sprintf("rec%03d", i),
	}
}

// Record returns the encoded i-th fixture record.
func Record(i int) ([]byte, error) {
	rec := make([]byte, BufLen)
	vals := Values(i)
	for _, vh := range Vars {
		err := telem.Put(rec, vh, vals[vh.Name])
		if err != nil {
			return nil, fmt.Errorf("irtest: could not encode record %d: %w", i, err)
		}
	}
	return rec, nil
}

// CreateCapture writes a fixture capture with n records to fname.
func CreateCapture(fname string, n int) error {
	w, err := ibt.Create(fname, Layout())
	if err != nil {
		return fmt.Errorf("irtest: could not create capture: %w", err)
	}
	defer w.Close()

	for i := 0; i < n; i++ {
		rec, err := Record(i)
		if err != nil {
			return err
		}
		err = w.Write(rec)
		if err != nil {
			return fmt.Errorf("irtest: could not write record %d: %w", i, err)
		}
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("irtest: could not close capture: %w", err)
	}
	return nil
}

// Region returns a live shared region, flagged as connected, whose
// single snapshot buffer holds the i-th fixture record at tick i.
func Region(i int) ([]byte, error) {
	var (
		varOff  = int32(telem.HeaderSize)
		infoOff = varOff + int32(len(Vars))*telem.VarHeaderSize
		bufOff  = infoOff + int32(len(SessionInfo))
	)
	hdr := telem.Header{
		Version:           2,
		Status:            telem.StatusConnected,
		TickRate:          TickRate,
		SessionInfoUpdate: 1,
		SessionInfoLen:    int32(len(SessionInfo)),
		SessionInfoOffset: infoOff,
		NumVars:           int32(len(Vars)),
		VarHeaderOffset:   varOff,
		NumBuf:            1,
		BufLen:            BufLen,
	}
	hdr.VarBufs[0] = telem.VarBuf{TickCount: int32(i), BufOffset: bufOff}

	var buf bytes.Buffer
	enc := telem.NewEncoder(&buf)
	err := enc.EncodeHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("irtest: could not encode header: %w", err)
	}
	for _, vh := range Vars {
		err = enc.EncodeVar(vh)
		if err != nil {
			return nil, fmt.Errorf("irtest: could not encode variable %q: %w", vh.Name, err)
		}
	}
	buf.Write(SessionInfo)

	rec, err := Record(i)
	if err != nil {
		return nil, err
	}
	buf.Write(rec)
	return buf.Bytes(), nil
}
