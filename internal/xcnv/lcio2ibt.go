// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/telem"
	"go-hep.org/x/hep/lcio"
)

// LCIO2IBT writes the records held by r into a new capture oname.
// The capture layout is rebuilt from the first run header.
func LCIO2IBT(oname string, r *lcio.Reader, msg *log.Logger) error {
	var (
		w   *ibt.Writer
		rec []byte
		i   = 0
	)

	for r.Next() {
		if i == 0 {
			layout, err := LayoutFromLCIO(r.RunHeader())
			if err != nil {
				return fmt.Errorf("could not decode capture layout: %w", err)
			}
			w, err = ibt.Create(oname, layout)
			if err != nil {
				return fmt.Errorf("could not create capture: %w", err)
			}
			defer w.Close()
			rec = make([]byte, layout.BufLen)
		}

		if i%1000 == 0 {
			msg.Printf("processing event %d...", i)
		}

		evt := r.Event()
		err := RecordFrom(rec, &evt)
		if err != nil {
			return err
		}

		err = w.Write(rec)
		if err != nil {
			return fmt.Errorf("could not write record %d: %w", i, err)
		}
		i++
	}

	err := r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	if w == nil {
		return fmt.Errorf("no event in LCIO file")
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close capture: %w", err)
	}

	msg.Printf("processed %d events", i)
	return nil
}

// LayoutFromLCIO decodes the capture layout stored in a run header.
func LayoutFromLCIO(rhdr lcio.RunHeader) (ibt.Layout, error) {
	var layout ibt.Layout

	ints := func(key string, n int) ([]int32, error) {
		vs, ok := rhdr.Params.Ints[key]
		if !ok || (n >= 0 && len(vs) != n) {
			return nil, fmt.Errorf("invalid run header parameter %q: %w", key, telem.ErrFormat)
		}
		return vs, nil
	}
	strs := func(key string, n int) ([]string, error) {
		vs, ok := rhdr.Params.Strings[key]
		if !ok && n == 0 {
			return nil, nil
		}
		if !ok || len(vs) != n {
			return nil, fmt.Errorf("invalid run header parameter %q: %w", key, telem.ErrFormat)
		}
		return vs, nil
	}

	rate, err := ints(keyTickRate, 1)
	if err != nil {
		return layout, err
	}
	blen, err := ints(keyBufLen, 1)
	if err != nil {
		return layout, err
	}
	table, err := ints(keyVarTable, -1)
	if err != nil {
		return layout, err
	}
	if len(table)%4 != 0 {
		return layout, fmt.Errorf("invalid variable table length %d: %w", len(table), telem.ErrFormat)
	}

	n := len(table) / 4
	names, err := strs(keyVarNames, n)
	if err != nil {
		return layout, err
	}
	descs, err := strs(keyVarDescs, n)
	if err != nil {
		return layout, err
	}
	units, err := strs(keyVarUnits, n)
	if err != nil {
		return layout, err
	}
	date, err := strs(keyStartDate, 1)
	if err != nil {
		return layout, err
	}
	info, err := strs(keySessInfo, 1)
	if err != nil {
		return layout, err
	}

	start, err := time.Parse(time.RFC3339, date[0])
	if err != nil {
		return layout, fmt.Errorf("could not parse start date: %w", err)
	}

	layout = ibt.Layout{
		TickRate:    rate[0],
		BufLen:      blen[0],
		Vars:        make([]telem.VarHeader, n),
		SessionInfo: []byte(info[0]),
		StartDate:   start,
	}
	for i := range layout.Vars {
		row := table[4*i : 4*i+4]
		layout.Vars[i] = telem.VarHeader{
			Type:        telem.VarType(row[0]),
			Offset:      row[1],
			Count:       row[2],
			CountAsTime: row[3] != 0,
			Name:        names[i],
			Desc:        descs[i],
			Unit:        units[i],
		}
	}
	return layout, nil
}

// RecordFrom unpacks the raw record carried by evt into rec.
func RecordFrom(rec []byte, evt *lcio.Event) error {
	obj, ok := evt.Get(CollName).(*lcio.GenericObject)
	if !ok || len(obj.Data) == 0 {
		return fmt.Errorf("event %d has no %q collection", evt.EventNumber, CollName)
	}
	err := bytesFrom(rec, obj.Data[0].I32s)
	if err != nil {
		return fmt.Errorf("could not decode event %d: %w", evt.EventNumber, err)
	}
	return nil
}

// bytesFrom unpacks little-endian int32s into rec.
func bytesFrom(rec []byte, raw []int32) error {
	if want := (len(rec) + i32sz - 1) / i32sz; len(raw) != want {
		return fmt.Errorf("invalid record size (got=%d words, want=%d): %w", len(raw), want, telem.ErrFormat)
	}

	var word [i32sz]byte
	for i, v := range raw {
		binary.LittleEndian.PutUint32(word[:], uint32(v))
		copy(rec[i*i32sz:], word[:])
	}
	return nil
}
