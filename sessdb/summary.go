// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sessdb

import (
	"fmt"

	"github.com/go-lpc/irsdk/ibt"
)

// NewSession summarizes the capture f.
func NewSession(f *ibt.File) (Session, error) {
	var (
		hdr  = f.Header()
		disk = f.DiskHeader()
		sess = Session{
			Start:    disk.StartDate,
			TickRate: hdr.TickRate,
			Records:  f.Len(),
			Laps:     disk.LapCount,
		}
	)

	for _, path := range []string{"WeekendInfo.TrackDisplayName", "WeekendInfo.TrackName"} {
		node, ok, err := f.SessionInfo(path)
		if err != nil {
			return sess, fmt.Errorf("sessdb: could not read track name: %w", err)
		}
		if ok && node.String() != "" {
			sess.Track = node.String()
			break
		}
	}

	node, ok, err := f.SessionInfo("DriverInfo")
	if err != nil {
		return sess, fmt.Errorf("sessdb: could not read driver info: %w", err)
	}
	if ok {
		var info struct {
			DriverCarIdx int `yaml:"DriverCarIdx"`
			Drivers      []struct {
				CarIdx        int    `yaml:"CarIdx"`
				CarScreenName string `yaml:"CarScreenName"`
			} `yaml:"Drivers"`
		}
		err = node.Decode(&info)
		if err != nil {
			return sess, fmt.Errorf("sessdb: could not decode driver info: %w", err)
		}
		for _, drv := range info.Drivers {
			if drv.CarIdx == info.DriverCarIdx {
				sess.Car = drv.CarScreenName
				break
			}
		}
	}

	laps, err := f.All("LapLastLapTime")
	if err != nil {
		return sess, fmt.Errorf("sessdb: could not read lap times: %w", err)
	}
	if laps == nil {
		return sess, nil
	}
	for _, v := range laps.Values() {
		var t float64
		switch x := v.Interface().(type) {
		case float32:
			t = float64(x)
		case float64:
			t = x
		default:
			return sess, fmt.Errorf("sessdb: invalid lap time type %v", v.Type())
		}
		if t > 0 && (sess.BestLap == 0 || t < sess.BestLap) {
			sess.BestLap = t
		}
	}
	if err := laps.Err(); err != nil {
		return sess, fmt.Errorf("sessdb: could not read lap times: %w", err)
	}

	return sess, nil
}
