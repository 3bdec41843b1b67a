// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ibt-dump decodes and displays telemetry capture files.
//
// Usage: ibt-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> ibt-dump -var Speed ./testdata/session.ibt
//	=== ./testdata/session.ibt ===
//	version:         2
//	tick rate:      60 Hz
//	start date:  2024-05-26T13:00:00Z
//	session:     [10.000, 10.150] s
//	laps:            3
//	records:        10
//	variables:       9
//	--- Speed [m/s] ---
//	       0 0
//	       1 1
//	[...]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/sessinfo"
	"golang.org/x/sync/errgroup"
)

const usage = `ibt-dump decodes and displays telemetry capture files.

Usage: ibt-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> ibt-dump -var Speed ./testdata/session.ibt
 $> ibt-dump -vars ./testdata/session.ibt
 $> ibt-dump -info DriverInfo.Drivers[0].UserName ./testdata/session.ibt

options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("ibt-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("ibt-dump", flag.ExitOnError)

		vars = fset.Bool("vars", false, "display the variable table")
		name = fset.String("var", "", "display all the values of the named variable")
		info = fset.String("info", "", "display the session info at the given dotted path")
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
		log.Fatalf("missing path to input capture file")
	}

	err = run(w, fset.Args(), options{vars: *vars, name: *name, info: *info})
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type options struct {
	vars bool
	name string
	info string
}

// run dumps all files concurrently and writes their reports in order.
func run(w io.Writer, fnames []string, opts options) error {
	var (
		grp  errgroup.Group
		outs = make([]bytes.Buffer, len(fnames))
	)
	for i := range fnames {
		grp.Go(func() error {
			err := process(&outs[i], fnames[i], opts)
			if err != nil {
				return fmt.Errorf("could not dump file %q: %w", fnames[i], err)
			}
			return nil
		})
	}

	err := grp.Wait()
	if err != nil {
		return err
	}

	for i := range outs {
		_, err = outs[i].WriteTo(w)
		if err != nil {
			return fmt.Errorf("could not write report: %w", err)
		}
	}
	return nil
}

func process(w io.Writer, fname string, opts options) error {
	f, err := ibt.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open capture: %w", err)
	}
	defer f.Close()

	var (
		hdr  = f.Header()
		disk = f.DiskHeader()
	)
	fmt.Fprintf(w, "=== %s ===\n", fname)
	fmt.Fprintf(w, "version:    % 6d\n", hdr.Version)
	fmt.Fprintf(w, "tick rate:  % 6d Hz\n", hdr.TickRate)
	fmt.Fprintf(w, "start date:  %s\n", disk.StartDate.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "session:     [%.3f, %.3f] s\n", disk.StartTime, disk.EndTime)
	fmt.Fprintf(w, "laps:       % 6d\n", disk.LapCount)
	fmt.Fprintf(w, "records:    % 6d\n", f.Len())
	fmt.Fprintf(w, "variables:  % 6d\n", f.Vars().Len())

	if opts.vars {
		for _, vh := range f.Vars().Headers() {
			fmt.Fprintf(w, "  %-24s %-8s [%3d] %-12s %s\n",
				vh.Name, vh.Type, vh.Count, unit(vh.Unit), vh.Desc,
			)
		}
	}

	if opts.name != "" {
		s, err := f.All(opts.name)
		if err != nil {
			return fmt.Errorf("could not read variable %q: %w", opts.name, err)
		}
		if s == nil {
			return fmt.Errorf("unknown variable %q", opts.name)
		}
		fmt.Fprintf(w, "--- %s %s ---\n", opts.name, unit(s.Var().Unit))
		for i, v := range s.Values() {
			fmt.Fprintf(w, "% 8d %v\n", i, v)
		}
		if err := s.Err(); err != nil {
			return fmt.Errorf("could not read variable %q: %w", opts.name, err)
		}
	}

	if opts.info != "" {
		node, ok, err := f.SessionInfo(opts.info)
		if err != nil {
			return fmt.Errorf("could not read session info: %w", err)
		}
		if !ok {
			return fmt.Errorf("unknown session info path %q", opts.info)
		}
		txt, err := describe(node)
		if err != nil {
			return fmt.Errorf("could not display session info %q: %w", opts.info, err)
		}
		fmt.Fprintf(w, "--- %s ---\n%s", opts.info, txt)
	}

	return nil
}

func unit(u string) string {
	if u == "" {
		return ""
	}
	return "[" + u + "]"
}

func describe(node sessinfo.Node) (string, error) {
	if node.Kind() == sessinfo.Scalar {
		return node.String() + "\n", nil
	}
	raw, err := node.Marshal()
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(string(raw), "\n"), nil
}
