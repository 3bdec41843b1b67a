// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ibt

import (
	"iter"

	"github.com/go-lpc/irsdk/telem"
)

// Series is the sequence of values of one variable across all records
// of a capture. Values are decoded on demand and a Series may be
// iterated any number of times, but not concurrently.
type Series struct {
	f   *File
	vh  telem.VarHeader
	err error
}

// Var returns the descriptor of the variable.
func (s *Series) Var() telem.VarHeader { return s.vh }

// Len returns the number of values, one per record.
func (s *Series) Len() int { return s.f.n }

// At returns the value held by the i-th record.
func (s *Series) At(i int) (telem.Value, error) {
	return s.f.value(i, s.vh)
}

// Values iterates over the (record index, value) pairs.
// Iteration stops early when a record cannot be read, e.g. after the
// capture was closed: Err then reports why.
func (s *Series) Values() iter.Seq2[int, telem.Value] {
	return func(yield func(int, telem.Value) bool) {
		s.err = nil
		for i := 0; i < s.f.n; i++ {
			v, err := s.f.value(i, s.vh)
			if err != nil {
				s.err = err
				return
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Err returns the error that stopped the last iteration over Values,
// or nil when it ran to completion or was stopped by the caller.
func (s *Series) Err() error { return s.err }
