// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ibt2lcio converts a telemetry capture file to an LCIO one.
package main // import "github.com/go-lpc/irsdk/cmd/ibt2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "ibt2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		run   = flag.Int("run", 0, "run number")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: ibt2lcio [OPTIONS] file.ibt

ex:
 $> ibt2lcio -o out.lcio -run=42 -lvl=9 ./input.ibt

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input capture file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	err := process(*oname, *compr, int32(*run), flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert capture file: %+v", err)
	}
}

func process(oname string, lvl int, run int32, fname string) error {
	f, err := ibt.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open capture file: %w", err)
	}
	defer f.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	err = xcnv.IBT2LCIO(w, f, run, msg)
	if err != nil {
		return fmt.Errorf("could not convert capture to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}
