// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ibt-split splits a telemetry capture into n captures,
// one per lap.
package main // import "github.com/go-lpc/irsdk/cmd/ibt-split"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/telem"
)

var (
	msg = log.New(os.Stdout, "ibt-split: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("ibt-split", flag.ExitOnError)

		oname = fset.String("o", "out.ibt", "path to output capture file")
		lap   = fset.String("var", "Lap", "name of the lap counter variable")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: ibt-split [OPTIONS] file.ibt

ex:
 $> ibt-split -o out.ibt ./input.ibt

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input capture file")
	}

	if *oname == "" {
		fset.Usage()
		msg.Fatalf("invalid output capture file")
	}

	for _, arg := range fset.Args() {
		err := process(*oname, *lap, arg)
		if err != nil {
			msg.Fatalf("could not split capture %q: %+v", arg, err)
		}
	}
}

func process(oname, lapVar, fname string) error {
	f, err := ibt.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open capture: %w", err)
	}
	defer f.Close()

	laps, err := f.All(lapVar)
	if err != nil {
		return fmt.Errorf("could not read lap counter: %w", err)
	}
	if laps == nil {
		return fmt.Errorf("unknown lap counter variable %q", lapVar)
	}
	if vh := laps.Var(); vh.Type != telem.Int || vh.Count != 1 {
		return fmt.Errorf("invalid lap counter variable %q (type=%v, count=%d)", lapVar, vh.Type, vh.Count)
	}

	layout, err := ibt.LayoutOf(f)
	if err != nil {
		return fmt.Errorf("could not read capture layout: %w", err)
	}

	out := make(map[int32]*ibt.Writer)
	defer func() {
		for _, w := range out {
			_ = w.Close()
		}
	}()

	for i, v := range laps.Values() {
		lap := v.Int()
		w, ok := out[lap]
		if !ok {
			oid := outFileFrom(oname, lap)
			msg.Printf("creating output file %q...", oid)
			w, err = ibt.Create(oid, layout)
			if err != nil {
				return fmt.Errorf("could not create output file: %w", err)
			}
			out[lap] = w
		}

		rec, err := f.At(i)
		if err != nil {
			return fmt.Errorf("could not read record %d: %w", i, err)
		}
		err = w.Write(rec.Bytes())
		if err != nil {
			return fmt.Errorf("could not write record %d: %w", i, err)
		}
	}
	if err := laps.Err(); err != nil {
		return fmt.Errorf("could not read lap counter: %w", err)
	}

	for lap, w := range out {
		delete(out, lap)
		err = w.Close()
		if err != nil {
			return fmt.Errorf("could not close output file for lap %d: %w", lap, err)
		}
	}

	return nil
}

func outFileFrom(fname string, lap int32) string {
	var (
		ext   = filepath.Ext(fname)
		oname = strings.TrimSuffix(fname, ext) + fmt.Sprintf("-%03d%s", lap, ext)
	)
	return oname
}
