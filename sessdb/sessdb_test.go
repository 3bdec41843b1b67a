// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sessdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/irsdk/ibt"
	"github.com/go-lpc/irsdk/internal/fakedb"
	"github.com/go-lpc/irsdk/internal/irtest"
	"github.com/google/go-cmp/cmp"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open sessdb: %+v", err)
	}
	defer db.Close()
}

func TestDSN(t *testing.T) {
	got := dsn("irsdk")
	if want := "username:s3cr3t@tcp(localhost)/irsdk"; !strings.HasPrefix(got, want) {
		t.Fatalf("invalid DSN: got=%q, want prefix %q", got, want)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("invalid DSN: %q does not parse time values", got)
	}
}

func TestInsertSession(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open sessdb: %+v", err)
	}
	defer db.Close()

	start := time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)
	_ = fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		err := db.InsertSession(ctx, Session{
			Track:    "Circuit de Spa-Francorchamps",
			Car:      "Porsche 911 GT3 R",
			Start:    start,
			TickRate: 60,
			Records:  10,
			Laps:     3,
			BestLap:  87.5,
		})
		if err != nil {
			t.Fatalf("could not insert session: %+v", err)
		}

		execs := fakedb.Execs()
		if got, want := len(execs), 1; got != want {
			t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
		}
		if !strings.HasPrefix(execs[0].Query, "INSERT INTO sessions ") {
			t.Fatalf("invalid statement: %q", execs[0].Query)
		}
		want := []driver.Value{
			"Circuit de Spa-Francorchamps", "Porsche 911 GT3 R", start,
			int64(60), int64(10), int64(3), 87.5,
		}
		if diff := cmp.Diff(want, execs[0].Args); diff != "" {
			t.Fatalf("invalid arguments (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestSessions(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open sessdb: %+v", err)
	}
	defer db.Close()

	var (
		t0 = time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)
		t1 = t0.Add(48 * time.Hour)
	)

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"track", "car", "start", "tick_rate", "records", "laps", "best_lap"},
		Values: [][]driver.Value{
			{"spa", "gt3", t0, int64(60), int64(10), int64(3), 87.5},
			{"monza", "gt3", t1, int64(60), int64(1200), int64(0), 0.0},
		},
	}, func(ctx context.Context) error {
		got, err := db.Sessions(ctx)
		if err != nil {
			t.Fatalf("could not retrieve sessions: %+v", err)
		}

		want := []Session{
			{Track: "spa", Car: "gt3", Start: t0, TickRate: 60, Records: 10, Laps: 3, BestLap: 87.5},
			{Track: "monza", Car: "gt3", Start: t1, TickRate: 60, Records: 1200},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("invalid sessions (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestBestLap(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open sessdb: %+v", err)
	}
	defer db.Close()

	t0 := time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)
	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"track", "car", "start", "tick_rate", "records", "laps", "best_lap"},
		Values: [][]driver.Value{
			{"spa", "gt3", t0, int64(60), int64(10), int64(3), 87.5},
		},
	}, func(ctx context.Context) error {
		s, err := db.BestLap(ctx, "spa")
		if err != nil {
			t.Fatalf("could not retrieve best lap: %+v", err)
		}
		if got, want := s.BestLap, 87.5; got != want {
			t.Fatalf("invalid best lap: got=%v, want=%v", got, want)
		}
		return nil
	})

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"track", "car", "start", "tick_rate", "records", "laps", "best_lap"},
	}, func(ctx context.Context) error {
		_, err := db.BestLap(ctx, "monza")
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("invalid error: got=%+v, want=%+v", err, sql.ErrNoRows)
		}
		return nil
	})
}

func TestNewSession(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "session.ibt")
	err := irtest.CreateCapture(fname, 10)
	if err != nil {
		t.Fatalf("could not create fixture: %+v", err)
	}

	f, err := ibt.Open(fname)
	if err != nil {
		t.Fatalf("could not open fixture: %+v", err)
	}
	defer f.Close()

	got, err := NewSession(f)
	if err != nil {
		t.Fatalf("could not summarize session: %+v", err)
	}

	want := Session{
		Track:    "Circuit de Spa-Francorchamps",
		Car:      "Porsche 911 GT3 R",
		Start:    irtest.StartDate,
		TickRate: irtest.TickRate,
		Records:  10,
		Laps:     3,
		BestLap:  87.5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("invalid session (-want +got):\n%s", diff)
	}
}
