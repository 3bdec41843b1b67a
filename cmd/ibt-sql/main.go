// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ibt-sql uploads summaries of telemetry captures to the
// sessions database.
package main // import "github.com/go-lpc/irsdk/cmd/ibt-sql"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/sessdb"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("ibt-sql: ")
	log.SetFlags(0)

	var (
		dbname = flag.String("db", "irsdk", "name of the sessions database")
		track  = flag.String("best", "", "display the best lap recorded on the named track")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: ibt-sql [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

ex:
 $> ibt-sql -db irsdk ./session1.ibt ./session2.ibt
 $> ibt-sql -db irsdk -best "Circuit de Spa-Francorchamps"

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 && *track == "" {
		flag.Usage()
		log.Fatalf("missing input capture files")
	}

	db, err := sessdb.Open(*dbname)
	if err != nil {
		log.Fatalf("could not open sessions db: %+v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	err = upload(ctx, db, flag.Args())
	if err != nil {
		log.Fatalf("could not upload sessions: %+v", err)
	}

	if *track != "" {
		s, err := db.BestLap(ctx, *track)
		if err != nil {
			log.Fatalf("could not retrieve best lap: %+v", err)
		}
		log.Printf("best lap on %q: %.3f s (car=%q, date=%v)", s.Track, s.BestLap, s.Car, s.Start)
	}
}

type store interface {
	InsertSession(ctx context.Context, s sessdb.Session) error
}

// upload summarizes all captures concurrently, then stores them in order.
func upload(ctx context.Context, db store, fnames []string) error {
	var (
		grp, gctx = errgroup.WithContext(ctx)
		sessions  = make([]sessdb.Session, len(fnames))
	)
	for i := range fnames {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := summarize(fnames[i])
			if err != nil {
				return fmt.Errorf("could not summarize %q: %w", fnames[i], err)
			}
			sessions[i] = s
			return nil
		})
	}

	err := grp.Wait()
	if err != nil {
		return err
	}

	for i, s := range sessions {
		log.Printf("%s: track=%q, car=%q, records=%d, laps=%d, best=%.3f s",
			fnames[i], s.Track, s.Car, s.Records, s.Laps, s.BestLap,
		)
		err = db.InsertSession(ctx, s)
		if err != nil {
			return fmt.Errorf("could not insert session from %q: %w", fnames[i], err)
		}
	}
	return nil
}

func summarize(fname string) (sessdb.Session, error) {
	f, err := ibt.Open(fname)
	if err != nil {
		return sessdb.Session{}, fmt.Errorf("could not open capture: %w", err)
	}
	defer f.Close()

	return sessdb.NewSession(f)
}
