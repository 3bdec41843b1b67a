// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ir-shell is an interactive shell to inspect live or recorded telemetry.
//
// Usage: ir-shell [OPTIONS] [FILE]
//
// Without FILE, ir-shell attaches to the running producer.
//
// Example:
//
//	$> ir-shell ./testdata/session.ibt
//	ir> get Speed
//	Speed = 9 [m/s]
//	ir> at 2 Lap
//	Lap = 1
//	ir> info WeekendInfo.TrackName
//	spa 2024
//	ir> quit
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/irsdk"
	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/live"
	"github.com/go-lpc/irsdk/sessinfo"
	"github.com/go-lpc/irsdk/telem"
	"github.com/peterh/liner"
)

const usage = `ir-shell is an interactive shell to inspect live or recorded telemetry.

Usage: ir-shell [OPTIONS] [FILE]

Without FILE, ir-shell attaches to the running producer.

options:
`

const help = `commands:
 names            list variable names
 get NAME         display the current value of NAME
 at I NAME        display the value of NAME in record I (captures only)
 len              display the number of records (captures only)
 info PATH        display the session info node at PATH
 freeze           pin the current snapshot (live only)
 unfreeze         release the pinned snapshot (live only)
 tick             display the current tick (live only)
 version          display the version of irsdk
 help             display this message
 quit             leave the shell
`

var errQuit = errors.New("quit")

func main() {
	log.SetPrefix("ir-shell: ")
	log.SetFlags(0)

	var (
		region = flag.String("region", "", "name of the shared memory region to attach to")
	)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()

	sh, err := open(*region, flag.Arg(0))
	if err != nil {
		log.Fatalf("could not open telemetry: %+v", err)
	}
	defer sh.Close()

	err = sh.run(os.Stdout)
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

type shell struct {
	f   *ibt.File
	cli *live.Client
}

func open(region, fname string) (*shell, error) {
	if fname != "" {
		f, err := ibt.Open(fname)
		if err != nil {
			return nil, err
		}
		return &shell{f: f}, nil
	}

	cli, err := live.Open(region, live.WithLogger(log.New(os.Stdout, "ir-shell: ", 0)))
	if err != nil {
		return nil, err
	}
	err = cli.Connect()
	if err != nil {
		_ = cli.Close()
		return nil, err
	}
	return &shell{cli: cli}, nil
}

func (sh *shell) Close() error {
	if sh.f != nil {
		return sh.f.Close()
	}
	return sh.cli.Close()
}

func (sh *shell) run(w io.Writer) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	for {
		line, err := term.Prompt("ir> ")
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.eval(w, line)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		default:
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
}

func (sh *shell) complete(line string) []string {
	var (
		out    []string
		fields = strings.Fields(line)
	)
	switch {
	case len(fields) == 2 && fields[0] == "get" && !strings.HasSuffix(line, " "):
		for _, name := range sh.names() {
			if strings.HasPrefix(name, fields[1]) {
				out = append(out, "get "+name)
			}
		}
	case len(fields) == 1 && !strings.HasSuffix(line, " "):
		for _, cmd := range []string{"names", "get", "at", "len", "info", "freeze", "unfreeze", "tick", "version", "help", "quit"} {
			if strings.HasPrefix(cmd, fields[0]) {
				out = append(out, cmd)
			}
		}
	}
	return out
}

func (sh *shell) names() []string {
	var names []string
	if sh.f != nil {
		names = sh.f.Names()
	} else {
		names = sh.cli.Names()
	}
	sort.Strings(names)
	return names
}

func (sh *shell) eval(w io.Writer, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprint(w, help)
		return nil
	case "version":
		vers, _ := irsdk.Version()
		fmt.Fprintf(w, "irsdk %s\n", vers)
		return nil
	case "names":
		for _, name := range sh.names() {
			fmt.Fprintln(w, name)
		}
		return nil
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get NAME")
		}
		return sh.get(w, -1, args[0])
	case "at":
		if len(args) != 2 {
			return fmt.Errorf("usage: at I NAME")
		}
		if sh.f == nil {
			return fmt.Errorf("command %q needs a capture file", cmd)
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid record index %q: %w", args[0], err)
		}
		return sh.get(w, i, args[1])
	case "len":
		if sh.f == nil {
			return fmt.Errorf("command %q needs a capture file", cmd)
		}
		fmt.Fprintln(w, sh.f.Len())
		return nil
	case "info":
		if len(args) != 1 {
			return fmt.Errorf("usage: info PATH")
		}
		return sh.info(w, args[0])
	case "freeze", "unfreeze", "tick":
		if sh.cli == nil {
			return fmt.Errorf("command %q needs a live session", cmd)
		}
		return sh.live(w, cmd)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (sh *shell) get(w io.Writer, i int, name string) error {
	var (
		v   telem.Value
		vh  telem.VarHeader
		ok  bool
		err error
	)
	switch {
	case sh.f != nil:
		vh, ok = sh.f.Vars().Lookup(name)
		if i < 0 {
			i = sh.f.Len() - 1
		}
		v, err = sh.f.GetAt(i, name)
	default:
		v, err = sh.cli.Get(name)
		if vars := sh.cli.Vars(); vars != nil {
			vh, ok = vars.Lookup(name)
		}
	}
	if err != nil {
		return fmt.Errorf("could not get %q: %w", name, err)
	}
	if !ok || !v.IsValid() {
		return fmt.Errorf("unknown variable %q", name)
	}

	fmt.Fprintf(w, "%s = %v", name, v)
	if vh.Unit != "" {
		fmt.Fprintf(w, " [%s]", vh.Unit)
	}
	fmt.Fprintln(w)
	return nil
}

func (sh *shell) info(w io.Writer, path string) error {
	var (
		node sessinfo.Node
		ok   bool
		err  error
	)
	switch {
	case sh.f != nil:
		node, ok, err = sh.f.SessionInfo(path)
	default:
		node, ok, err = sh.cli.SessionInfo(path)
	}
	if err != nil {
		return fmt.Errorf("could not look up session info %q: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("no session info at %q", path)
	}

	if node.Kind() == sessinfo.Scalar {
		fmt.Fprintln(w, node.String())
		return nil
	}
	raw, err := node.Marshal()
	if err != nil {
		return fmt.Errorf("could not display session info %q: %w", path, err)
	}
	fmt.Fprint(w, strings.TrimLeft(string(raw), "\n"))
	return nil
}

func (sh *shell) live(w io.Writer, cmd string) error {
	switch cmd {
	case "freeze":
		err := sh.cli.Freeze()
		if err != nil {
			return fmt.Errorf("could not freeze snapshot: %w", err)
		}
	case "unfreeze":
		sh.cli.Unfreeze()
	case "tick":
		tick, err := sh.cli.Tick()
		if err != nil {
			return fmt.Errorf("could not read tick: %w", err)
		}
		fmt.Fprintln(w, tick)
	}
	return nil
}
