// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert telemetry captures to/from LCIO.
//
// Each capture record is stored as one LCIO event holding a generic
// object with the raw record packed into little-endian int32s.
// The run header carries the layout needed to rebuild the capture.
package xcnv // import "github.com/go-lpc/irsdk/internal/xcnv"

const (
	Detector = "IRSDK"
	CollName = "IR_RECORD" // name of the raw record collection

	i32sz = 4
)

// run header parameters.
const (
	keyTickRate  = "TickRate"
	keyBufLen    = "BufLen"
	keyStartDate = "StartDate"
	keySessInfo  = "SessionInfo"
	keyVarTable  = "VarTable" // (type, offset, count, count-as-time) per variable
	keyVarNames  = "VarNames"
	keyVarDescs  = "VarDescs"
	keyVarUnits  = "VarUnits"
)
