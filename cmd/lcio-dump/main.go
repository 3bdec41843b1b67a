// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays telemetry records embedded in LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump -vars Lap,Speed ./testdata/session.slcio
//	=== run 42 (IRSDK) ===
//	tick rate:      60 Hz
//	start date:  2024-05-26T13:00:00Z
//	variables:       9
//	--- event 0 (t=10.000 s) ---
//	Lap = 1
//	Speed = 0 [m/s]
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-lpc/irsdk/internal/xcnv"
	"github.com/go-lpc/irsdk/telem"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays telemetry records embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump ./testdata/session.slcio
 $> lcio-dump -vars Lap,Speed ./testdata/session.slcio

options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("lcio-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("lcio-dump", flag.ExitOnError)

		vars = fset.String("vars", "", "comma-separated list of variables to display (default: all)")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input LCIO file")
	}

	var names []string
	if *vars != "" {
		names = strings.Split(*vars, ",")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, names)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, names []string) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	var (
		run  = int32(-1)
		vars *telem.Vars
		sel  []telem.VarHeader
		rec  []byte
	)

	for r.Next() {
		rhdr := r.RunHeader()
		if vars == nil || rhdr.RunNumber != run {
			layout, err := xcnv.LayoutFromLCIO(rhdr)
			if err != nil {
				return fmt.Errorf("could not decode layout of run %d: %w", rhdr.RunNumber, err)
			}
			vars, err = telem.NewVars(layout.Vars, int(layout.BufLen))
			if err != nil {
				return fmt.Errorf("could not build variable table of run %d: %w", rhdr.RunNumber, err)
			}
			sel, err = selectVars(vars, names)
			if err != nil {
				return err
			}
			rec = make([]byte, layout.BufLen)
			run = rhdr.RunNumber

			fmt.Fprintf(wbuf, "=== run %d (%s) ===\n", rhdr.RunNumber, rhdr.Detector)
			fmt.Fprintf(wbuf, "tick rate:  % 6d Hz\n", layout.TickRate)
			fmt.Fprintf(wbuf, "start date:  %s\n", layout.StartDate.Format(time.RFC3339))
			fmt.Fprintf(wbuf, "variables:  % 6d\n", vars.Len())
		}

		evt := r.Event()
		err := xcnv.RecordFrom(rec, &evt)
		if err != nil {
			return err
		}

		fmt.Fprintf(wbuf, "--- event %d (t=%.3f s) ---\n", evt.EventNumber, float64(evt.TimeStamp)/1e9)
		for _, vh := range sel {
			v, err := telem.DecodeVar(rec, vh)
			if err != nil {
				return fmt.Errorf("could not decode %q in event %d: %w", vh.Name, evt.EventNumber, err)
			}
			fmt.Fprintf(wbuf, "%s = %v", vh.Name, v)
			if vh.Unit != "" {
				fmt.Fprintf(wbuf, " [%s]", vh.Unit)
			}
			fmt.Fprintln(wbuf)
		}
	}

	err = r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	return nil
}

func selectVars(vars *telem.Vars, names []string) ([]telem.VarHeader, error) {
	if len(names) == 0 {
		return vars.Headers(), nil
	}
	sel := make([]telem.VarHeader, 0, len(names))
	for _, name := range names {
		vh, ok := vars.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown variable %q", name)
		}
		sel = append(sel, vh)
	}
	return sel, nil
}
