// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package telem

import (
	"golang.org/x/xerrors"
)

// VarHeader describes one telemetry variable within a snapshot.
type VarHeader struct {
	Type        VarType
	Offset      int32 // byte offset within a snapshot
	Count       int32 // number of elements, 1 for scalars
	CountAsTime bool
	Name        string
	Desc        string
	Unit        string
}

// Size returns the number of bytes the variable spans within a snapshot.
func (vh VarHeader) Size() int {
	return vh.Type.Size() * int(vh.Count)
}

// Vars is the immutable, ordered table of variable descriptors.
type Vars struct {
	list []VarHeader
	idx  map[string]int
}

// NewVars builds a table from descriptors, rejecting duplicated names
// and descriptors that do not fit in a snapshot of bufLen bytes.
func NewVars(vhs []VarHeader, bufLen int) (*Vars, error) {
	vars := &Vars{
		list: make([]VarHeader, len(vhs)),
		idx:  make(map[string]int, len(vhs)),
	}
	copy(vars.list, vhs)

	for i, vh := range vars.list {
		if !vh.Type.Valid() {
			return nil, xerrors.Errorf("telem: variable %q has unknown type tag %d: %w", vh.Name, int32(vh.Type), ErrFormat)
		}
		if vh.Count < 1 {
			return nil, xerrors.Errorf("telem: variable %q has invalid count %d: %w", vh.Name, vh.Count, ErrFormat)
		}
		if vh.Offset < 0 || int(vh.Offset)+vh.Size() > bufLen {
			return nil, xerrors.Errorf(
				"telem: variable %q [%d, +%d] outside snapshot (len=%d): %w",
				vh.Name, vh.Offset, vh.Size(), bufLen, ErrFormat,
			)
		}
		if _, dup := vars.idx[vh.Name]; dup {
			return nil, xerrors.Errorf("telem: duplicate variable %q: %w", vh.Name, ErrFormat)
		}
		vars.idx[vh.Name] = i
	}

	return vars, nil
}

// ParseVars parses the variable table declared by hdr.
func ParseVars(src Source, hdr Header) (*Vars, error) {
	n := int(hdr.NumVars)
	raw, err := readAt(src, int64(hdr.VarHeaderOffset), n*VarHeaderSize)
	if err != nil {
		return nil, xerrors.Errorf("telem: could not read variable table: %w", err)
	}

	vhs := make([]VarHeader, n)
	for i := range vhs {
		err = vhs[i].UnmarshalBinary(raw[i*VarHeaderSize : (i+1)*VarHeaderSize])
		if err != nil {
			return nil, xerrors.Errorf("telem: could not decode variable %d: %w", i, err)
		}
	}

	return NewVars(vhs, int(hdr.BufLen))
}

// UnmarshalBinary decodes one variable descriptor record.
func (vh *VarHeader) UnmarshalBinary(p []byte) error {
	dec := newDecoder(p)
	vh.Type = VarType(dec.readI32())
	vh.Offset = dec.readI32()
	vh.Count = dec.readI32()
	vh.CountAsTime = dec.readBool()
	dec.skip(3)
	vh.Name = dec.readStr(varNameLen)
	vh.Desc = dec.readStr(varDescLen)
	vh.Unit = dec.readStr(varUnitLen)
	if dec.err != nil {
		return xerrors.Errorf("telem: short variable record: %w", ErrFormat)
	}
	return nil
}

// Len returns the number of variables.
func (vars *Vars) Len() int { return len(vars.list) }

// Names returns the variable names in table order.
func (vars *Vars) Names() []string {
	names := make([]string, len(vars.list))
	for i, vh := range vars.list {
		names[i] = vh.Name
	}
	return names
}

// At returns the i-th variable descriptor.
func (vars *Vars) At(i int) VarHeader { return vars.list[i] }

// Lookup returns the descriptor of the named variable.
func (vars *Vars) Lookup(name string) (VarHeader, bool) {
	i, ok := vars.idx[name]
	if !ok {
		return VarHeader{}, false
	}
	return vars.list[i], true
}

// Headers returns a copy of the descriptors in table order.
func (vars *Vars) Headers() []VarHeader {
	o := make([]VarHeader, len(vars.list))
	copy(o, vars.list)
	return o
}
