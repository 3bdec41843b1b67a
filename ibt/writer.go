// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ibt

import (
	"io"
	"os"
	"time"

	"github.com/go-lpc/irsdk/telem"
	"golang.org/x/xerrors"
)

const version = 2

// Layout describes the capture a Writer produces.
type Layout struct {
	TickRate    int32
	BufLen      int32
	Vars        []telem.VarHeader
	SessionInfo []byte
	StartDate   time.Time
}

// LayoutOf returns the layout of an existing capture.
func LayoutOf(f *File) (Layout, error) {
	info, err := f.RawSessionInfo()
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		TickRate:    f.hdr.TickRate,
		BufLen:      f.hdr.BufLen,
		Vars:        f.vars.Headers(),
		SessionInfo: info,
		StartDate:   f.disk.StartDate,
	}, nil
}

// Writer writes records to a capture.
type Writer struct {
	w    io.WriteSeeker
	f    *os.File // file created by Create, if any
	hdr  telem.Header
	disk telem.DiskHeader

	stime *telem.VarHeader // session time, if declared
	lap   *telem.VarHeader // lap counter, if declared
	err   error
}

// Create creates the named capture file.
func Create(fname string, layout Layout) (*Writer, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not create capture %q: %w", fname, err)
	}

	w, err := NewWriter(f, layout)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.f = f
	return w, nil
}

// NewWriter writes the capture preamble to w and returns a Writer
// appending records after it.
//
// Captures need at least one record to be readable back.
func NewWriter(w io.WriteSeeker, layout Layout) (*Writer, error) {
	vars, err := telem.NewVars(layout.Vars, int(layout.BufLen))
	if err != nil {
		return nil, xerrors.Errorf("ibt: invalid layout: %w", err)
	}
	if layout.BufLen < 1 {
		return nil, xerrors.Errorf("ibt: invalid record length %d: %w", layout.BufLen, telem.ErrFormat)
	}

	var (
		varOff  = int32(telem.HeaderSize + telem.DiskHeaderSize)
		infoOff = varOff + int32(vars.Len())*telem.VarHeaderSize
		recOff  = infoOff + int32(len(layout.SessionInfo))
	)

	wrt := &Writer{
		w: w,
		hdr: telem.Header{
			Version:           version,
			TickRate:          layout.TickRate,
			SessionInfoLen:    int32(len(layout.SessionInfo)),
			SessionInfoOffset: infoOff,
			NumVars:           int32(vars.Len()),
			VarHeaderOffset:   varOff,
			NumBuf:            1,
			BufLen:            layout.BufLen,
		},
		disk: telem.DiskHeader{
			StartDate: layout.StartDate.UTC(),
		},
	}
	wrt.hdr.VarBufs[0].BufOffset = recOff

	if vh, ok := vars.Lookup("SessionTime"); ok && vh.Type == telem.Double && vh.Count == 1 {
		wrt.stime = &vh
	}
	if vh, ok := vars.Lookup("Lap"); ok && vh.Type == telem.Int && vh.Count == 1 {
		wrt.lap = &vh
	}

	enc := telem.NewEncoder(w)
	err = wrt.preamble(enc)
	if err != nil {
		return nil, err
	}
	for _, vh := range vars.Headers() {
		err = enc.EncodeVar(vh)
		if err != nil {
			return nil, xerrors.Errorf("ibt: could not write variable table: %w", err)
		}
	}
	_, err = w.Write(layout.SessionInfo)
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not write session info: %w", err)
	}

	return wrt, nil
}

func (w *Writer) preamble(enc *telem.Encoder) error {
	err := enc.EncodeHeader(w.hdr)
	if err != nil {
		return xerrors.Errorf("ibt: could not write header: %w", err)
	}
	err = enc.EncodeDiskHeader(w.disk)
	if err != nil {
		return xerrors.Errorf("ibt: could not write disk header: %w", err)
	}
	return nil
}

// Len returns the number of records written so far.
func (w *Writer) Len() int { return int(w.disk.RecordCount) }

// Write appends one record.
func (w *Writer) Write(rec []byte) error {
	if w.err != nil {
		return w.err
	}
	if len(rec) != int(w.hdr.BufLen) {
		return xerrors.Errorf("ibt: invalid record size (got=%d, want=%d)", len(rec), w.hdr.BufLen)
	}

	_, w.err = w.w.Write(rec)
	if w.err != nil {
		w.err = xerrors.Errorf("ibt: could not write record %d: %w", w.disk.RecordCount, w.err)
		return w.err
	}

	if w.stime != nil {
		v, err := telem.DecodeVar(rec, *w.stime)
		if err == nil {
			if w.disk.RecordCount == 0 {
				w.disk.StartTime = v.Float64()
			}
			w.disk.EndTime = v.Float64()
		}
	}
	if w.lap != nil {
		v, err := telem.DecodeVar(rec, *w.lap)
		if err == nil && v.Int() > w.disk.LapCount {
			w.disk.LapCount = v.Int()
		}
	}
	w.disk.RecordCount++
	return nil
}

// Close patches the disk sub-header with the record count, lap count
// and session times, and closes the file created by Create.
func (w *Writer) Close() error {
	if w.err != nil {
		w.closeFile()
		return w.err
	}

	end, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		w.closeFile()
		return xerrors.Errorf("ibt: could not locate end of capture: %w", err)
	}

	_, err = w.w.Seek(0, io.SeekStart)
	if err != nil {
		w.closeFile()
		return xerrors.Errorf("ibt: could not rewind capture: %w", err)
	}
	err = w.preamble(telem.NewEncoder(w.w))
	if err != nil {
		w.closeFile()
		return err
	}
	_, err = w.w.Seek(end, io.SeekStart)
	if err != nil {
		w.closeFile()
		return xerrors.Errorf("ibt: could not seek end of capture: %w", err)
	}
	w.err = xerrors.Errorf("ibt: writer closed")

	if w.f != nil {
		err = w.f.Close()
		if err != nil {
			return xerrors.Errorf("ibt: could not close capture: %w", err)
		}
	}
	return nil
}

func (w *Writer) closeFile() {
	if w.f != nil {
		_ = w.f.Close()
	}
}
