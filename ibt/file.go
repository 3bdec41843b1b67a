// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ibt reads and writes on-disk telemetry captures.
//
// A capture holds the layout header, a disk sub-header, the variable
// table, the session info text and a contiguous run of fixed-size
// records, one per sampled tick.
package ibt // import "github.com/go-lpc/irsdk/ibt"

import (
	"io"
	"sync"

	"github.com/go-lpc/irsdk/internal/mmap"
	"github.com/go-lpc/irsdk/sessinfo"
	"github.com/go-lpc/irsdk/telem"
	"golang.org/x/xerrors"
)

// File is a read-only capture.
//
// A File may be used concurrently by multiple goroutines.
type File struct {
	src  telem.Source
	hdr  telem.Header
	disk telem.DiskHeader
	vars *telem.Vars
	beg  int64 // offset of the first record
	size int   // record size
	n    int   // number of complete records

	mu     sync.RWMutex
	closed bool

	once sync.Once
	info *sessinfo.Tree
	ierr error
}

// Open opens and memory-maps the named capture file.
func Open(fname string) (*File, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not open capture %q: %w", fname, err)
	}

	f, err := NewReader(h)
	if err != nil {
		_ = h.Close()
		return nil, xerrors.Errorf("ibt: could not read capture %q: %w", fname, err)
	}
	return f, nil
}

// NewReader parses the capture held by src.
//
// The number of records is derived from the size of src: a trailing
// partial record is ignored.
func NewReader(src telem.Source) (*File, error) {
	hdr, err := telem.ParseHeader(src)
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not parse header: %w", err)
	}
	if hdr.NumBuf < 1 || hdr.BufLen < 1 {
		return nil, xerrors.Errorf(
			"ibt: invalid record layout (buffers=%d, len=%d): %w",
			hdr.NumBuf, hdr.BufLen, telem.ErrFormat,
		)
	}

	disk, err := telem.ParseDiskHeader(src)
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not parse disk header: %w", err)
	}

	vars, err := telem.ParseVars(src, hdr)
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not parse variables: %w", err)
	}

	var (
		beg  = int64(hdr.VarBufs[0].BufOffset)
		size = int(hdr.BufLen)
	)
	return &File{
		src:  src,
		hdr:  hdr,
		disk: disk,
		vars: vars,
		beg:  beg,
		size: size,
		n:    int((int64(src.Len()) - beg) / int64(size)),
	}, nil
}

// Close releases the underlying source when it is an io.Closer.
// All later reads fail with telem.ErrNotConnected.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if closer, ok := f.src.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			return xerrors.Errorf("ibt: could not close capture: %w", err)
		}
	}
	return nil
}

// Header returns the layout header.
func (f *File) Header() telem.Header { return f.hdr }

// DiskHeader returns the capture sub-header.
func (f *File) DiskHeader() telem.DiskHeader { return f.disk }

// Vars returns the variable table.
func (f *File) Vars() *telem.Vars { return f.vars }

// Names returns the variable names in descriptor order.
func (f *File) Names() []string { return f.vars.Names() }

// Len returns the number of records.
func (f *File) Len() int { return f.n }

// Record is a copy of one capture record.
type Record struct {
	vars *telem.Vars
	raw  []byte
}

// Bytes returns the raw record.
func (rec Record) Bytes() []byte { return rec.raw }

// Get decodes the named variable.
// Unknown names yield an absent value and a nil error.
func (rec Record) Get(name string) (telem.Value, error) {
	vh, ok := rec.vars.Lookup(name)
	if !ok {
		return telem.Value{}, nil
	}
	return telem.DecodeVar(rec.raw, vh)
}

// At returns a copy of the i-th record.
func (f *File) At(i int) (Record, error) {
	raw := make([]byte, f.size)
	err := f.read(raw, i, 0)
	if err != nil {
		return Record{}, err
	}
	return Record{vars: f.vars, raw: raw}, nil
}

// Get returns the value of the named variable in the last record.
func (f *File) Get(name string) (telem.Value, error) {
	return f.GetAt(f.n-1, name)
}

// GetAt returns the value of the named variable in the i-th record.
// Unknown names yield an absent value and a nil error.
func (f *File) GetAt(i int, name string) (telem.Value, error) {
	vh, ok := f.vars.Lookup(name)
	if !ok {
		return telem.Value{}, f.check()
	}
	return f.value(i, vh)
}

// All returns the series of values of the named variable across all
// records. Unknown names yield a nil series and a nil error.
func (f *File) All(name string) (*Series, error) {
	err := f.check()
	if err != nil {
		return nil, err
	}
	vh, ok := f.vars.Lookup(name)
	if !ok {
		return nil, nil
	}
	return &Series{f: f, vh: vh}, nil
}

// SessionInfo looks up a dotted path in the session info tree,
// parsed on first use.
func (f *File) SessionInfo(path string) (sessinfo.Node, bool, error) {
	err := f.check()
	if err != nil {
		return sessinfo.Node{}, false, err
	}

	f.once.Do(func() {
		var raw []byte
		raw, f.ierr = f.RawSessionInfo()
		if f.ierr != nil {
			return
		}
		f.info, f.ierr = sessinfo.Parse(raw)
	})
	if f.ierr != nil {
		return sessinfo.Node{}, false, xerrors.Errorf("ibt: could not load session info: %w", f.ierr)
	}

	node, ok := f.info.Lookup(path)
	return node, ok, nil
}

// RawSessionInfo returns a copy of the session info text block.
func (f *File) RawSessionInfo() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, errClosed
	}

	raw := make([]byte, f.hdr.SessionInfoLen)
	_, err := f.src.ReadAt(raw, int64(f.hdr.SessionInfoOffset))
	if err != nil {
		return nil, xerrors.Errorf("ibt: could not read session info: %w", err)
	}
	return raw, nil
}

func (f *File) value(i int, vh telem.VarHeader) (telem.Value, error) {
	raw := make([]byte, vh.Size())
	err := f.read(raw, i, int(vh.Offset))
	if err != nil {
		return telem.Value{}, err
	}
	v, err := telem.Decode(raw, vh.Type, 0, int(vh.Count))
	if err != nil {
		return telem.Value{}, xerrors.Errorf("ibt: could not decode %q: %w", vh.Name, err)
	}
	return v, nil
}

// read fills p from the i-th record, starting at offset off within it.
func (f *File) read(p []byte, i, off int) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return errClosed
	}
	if i < 0 || i >= f.n {
		return xerrors.Errorf("ibt: record %d not in [0, %d): %w", i, f.n, telem.ErrOutOfRange)
	}

	pos := f.beg + int64(i)*int64(f.size) + int64(off)
	_, err := f.src.ReadAt(p, pos)
	if err != nil {
		return xerrors.Errorf("ibt: could not read record %d: %w", i, err)
	}
	return nil
}

func (f *File) check() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return errClosed
	}
	return nil
}

var errClosed = xerrors.Errorf("ibt: capture closed: %w", telem.ErrNotConnected)
