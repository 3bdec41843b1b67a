// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio-rewrite-run copies the telemetry records of a LCIO file
// under a new run number.
//
// Every event is decoded against the capture layout carried by the run
// header before being written out, so the output can be converted back
// with lcio2ibt. Input files holding several runs are merged into a
// single run, provided all runs share the same record layout.
package main // import "github.com/go-lpc/irsdk/cmd/lcio-rewrite-run"

import (
	"compress/flate"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var msg = log.New(os.Stdout, "lcio-rewrite: ", 0)

func main() {
	log.SetPrefix("lcio-rewrite: ")
	log.SetFlags(0)

	var (
		runnbr = flag.Int("run", 0, "run number to use for output LCIO file")
		oname  = flag.String("o", "out.slcio", "path to output rewritten LCIO file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: lcio-rewrite-run [OPTIONS] FILE.slcio

ex:
 $> lcio-rewrite-run -o output.slcio -run=1234 ./input.slcio
 lcio-rewrite: run 42: 60 Hz, 9 variables, 48 bytes per record
 lcio-rewrite: processing event 0...
 lcio-rewrite: processing event 1000...
 lcio-rewrite: rewrote 1800 records into run 1234

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing input LCIO file to rewrite")
	}

	err := process(*oname, flag.Arg(0), int32(*runnbr))
	if err != nil {
		log.Fatalf("could not rewrite %q: %+v", flag.Arg(0), err)
	}
}

func process(oname, fname string, run int32) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open input LCIO file: %w", err)
	}
	defer r.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(flate.BestCompression)

	rw := rewriter{w: w, run: run}
	for r.Next() {
		err = rw.header(r.RunHeader())
		if err != nil {
			return err
		}
		err = rw.event(r.Event())
		if err != nil {
			return err
		}
	}

	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	if rw.n == 0 {
		return fmt.Errorf("no telemetry record in LCIO file")
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	msg.Printf("rewrote %d records into run %d", rw.n, run)
	return nil
}

// rewriter validates telemetry events and writes them under a new run.
type rewriter struct {
	w   *lcio.Writer
	run int32

	src    int32 // run number of the current input run
	layout *ibt.Layout
	rec    []byte
	n      int
}

// header handles the run header in effect for the next event.
// The output run header is written once, from the first input run.
func (rw *rewriter) header(rhdr lcio.RunHeader) error {
	if rw.layout != nil && rhdr.RunNumber == rw.src {
		return nil
	}

	if rhdr.Detector != xcnv.Detector {
		return fmt.Errorf("invalid detector %q (want=%q)", rhdr.Detector, xcnv.Detector)
	}
	layout, err := xcnv.LayoutFromLCIO(rhdr)
	if err != nil {
		return fmt.Errorf("could not decode layout of run %d: %w", rhdr.RunNumber, err)
	}
	msg.Printf(
		"run %d: %d Hz, %d variables, %d bytes per record",
		rhdr.RunNumber, layout.TickRate, len(layout.Vars), layout.BufLen,
	)

	rw.src = rhdr.RunNumber
	if rw.layout != nil {
		if layout.BufLen != rw.layout.BufLen || len(layout.Vars) != len(rw.layout.Vars) {
			return fmt.Errorf(
				"run %d: layout (vars=%d, len=%d) differs from first run (vars=%d, len=%d)",
				rhdr.RunNumber, len(layout.Vars), layout.BufLen,
				len(rw.layout.Vars), rw.layout.BufLen,
			)
		}
		return nil
	}

	rw.layout = &layout
	rw.rec = make([]byte, layout.BufLen)

	rhdr.RunNumber = rw.run
	err = rw.w.WriteRunHeader(&rhdr)
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}
	return nil
}

func (rw *rewriter) event(evt lcio.Event) error {
	err := xcnv.RecordFrom(rw.rec, &evt)
	if err != nil {
		return fmt.Errorf("run %d: %w", rw.src, err)
	}

	if rw.n%1000 == 0 {
		msg.Printf("processing event %d...", rw.n)
	}

	evt.RunNumber = rw.run
	evt.EventNumber = int32(rw.n)
	err = rw.w.WriteEvent(&evt)
	if err != nil {
		return fmt.Errorf("could not write record %d: %w", rw.n, err)
	}
	rw.n++
	return nil
}
