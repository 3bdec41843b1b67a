// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/go-lpc/irsdk/ibt"
	"go-hep.org/x/hep/lcio"
)

// IBT2LCIO writes the run header and one event per record of f.
func IBT2LCIO(w *lcio.Writer, f *ibt.File, run int32, msg *log.Logger) error {
	rhdr, err := RunHeaderFrom(f, run)
	if err != nil {
		return fmt.Errorf("could not build run header: %w", err)
	}

	err = w.WriteRunHeader(&rhdr)
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}

	var (
		n   = f.Len()
		raw = &lcio.GenericObject{
			Data: []lcio.GenericObjectData{
				{I32s: nil},
			},
		}
		buf []int32
	)

	for i := 0; i < n; i++ {
		if i%1000 == 0 {
			msg.Printf("processing record %d/%d...", i, n)
		}
		rec, err := f.At(i)
		if err != nil {
			return fmt.Errorf("could not read record %d: %w", i, err)
		}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(i),
			TimeStamp:   int64(i),
			Detector:    Detector,
		}
		if v, err := rec.Get("SessionTime"); err == nil && v.IsValid() {
			if t, ok := v.Interface().(float64); ok {
				evt.TimeStamp = int64(t * float64(time.Second))
			}
		}

		buf = i32sFrom(buf, rec.Bytes())
		raw.Data[0].I32s = buf
		evt.Add(CollName, raw)

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write record %d: %w", i, err)
		}
	}

	msg.Printf("processed %d records", n)
	return nil
}

// RunHeaderFrom builds the LCIO run header describing the layout of f.
func RunHeaderFrom(f *ibt.File, run int32) (lcio.RunHeader, error) {
	layout, err := ibt.LayoutOf(f)
	if err != nil {
		return lcio.RunHeader{}, err
	}

	var (
		n     = len(layout.Vars)
		table = make([]int32, 0, 4*n)
		names = make([]string, 0, n)
		descs = make([]string, 0, n)
		units = make([]string, 0, n)
	)
	for _, vh := range layout.Vars {
		asTime := int32(0)
		if vh.CountAsTime {
			asTime = 1
		}
		table = append(table, int32(vh.Type), vh.Offset, vh.Count, asTime)
		names = append(names, vh.Name)
		descs = append(descs, vh.Desc)
		units = append(units, vh.Unit)
	}

	return lcio.RunHeader{
		RunNumber: run,
		Detector:  Detector,
		Descr:     "telemetry capture",
		Params: lcio.Params{
			Ints: map[string][]int32{
				keyTickRate: {layout.TickRate},
				keyBufLen:   {layout.BufLen},
				keyVarTable: table,
			},
			Strings: map[string][]string{
				keyStartDate: {layout.StartDate.UTC().Format(time.RFC3339)},
				keySessInfo:  {string(layout.SessionInfo)},
				keyVarNames:  names,
				keyVarDescs:  descs,
				keyVarUnits:  units,
			},
		},
	}, nil
}

// i32sFrom packs rec into little-endian int32s, zero-padding the last one.
func i32sFrom(dst []int32, rec []byte) []int32 {
	n := (len(rec) + i32sz - 1) / i32sz
	if cap(dst) < n {
		dst = make([]int32, n)
	}
	dst = dst[:n]

	var word [i32sz]byte
	for i := range dst {
		word = [i32sz]byte{}
		copy(word[:], rec[i*i32sz:])
		dst[i] = int32(binary.LittleEndian.Uint32(word[:]))
	}
	return dst
}
