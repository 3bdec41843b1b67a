// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio2ibt converts an LCIO file back into a telemetry capture file.
package main // import "github.com/go-lpc/irsdk/cmd/lcio2ibt"

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/irsdk/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func main() {
	log.SetPrefix("lcio2ibt: ")
	log.SetFlags(0)

	var (
		oname = flag.String("o", "out.ibt", "path to output capture file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: lcio2ibt [OPTIONS] file.lcio

ex:
 $> lcio2ibt -o out.ibt ./input.lcio

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing input LCIO file")
	}

	if *oname == "" {
		flag.Usage()
		log.Fatalf("invalid output capture file name")
	}

	log.Printf("input:  %s", flag.Arg(0))
	err := process(*oname, flag.Arg(0))
	if err != nil {
		log.Fatalf("could not convert LCIO file: %+v", err)
	}
}

func process(oname, fname string) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	msg := log.New(os.Stdout, "lcio2ibt: ", 0)
	err = xcnv.LCIO2IBT(oname, r, msg)
	if err != nil {
		return fmt.Errorf("could not convert LCIO to capture: %w", err)
	}

	return nil
}
