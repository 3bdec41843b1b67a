// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sessdb stores summaries of recorded driving sessions into a
// MySQL database.
package sessdb // import "github.com/go-lpc/irsdk/sessdb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// Session summarizes one capture.
type Session struct {
	Track    string
	Car      string
	Start    time.Time
	TickRate int32
	Records  int
	Laps     int32
	BestLap  float64 // best lap time in seconds, 0 when no lap was completed
}

// DB exposes convenience methods to store and retrieve sessions.
type DB struct {
	db   *sql.DB
	name string // name of the sessions database
}

// Open opens a connection to the sessions database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("sessdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	cfg := mysql.NewConfig()
	cfg.User = usr
	cfg.Passwd = pwd
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = db
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("sessdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// InsertSession stores a session summary.
func (db *DB) InsertSession(ctx context.Context, s Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		"INSERT INTO sessions (track, car, start, tick_rate, records, laps, best_lap) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.Track, s.Car, s.Start.UTC(), s.TickRate, s.Records, s.Laps, s.BestLap,
	)
	if err != nil {
		return fmt.Errorf("sessdb: could not insert session (track=%q, start=%v): %w", s.Track, s.Start, err)
	}
	return nil
}

// Sessions returns all stored sessions, oldest first.
func (db *DB) Sessions(ctx context.Context) ([]Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT track, car, start, tick_rate, records, laps, best_lap FROM sessions ORDER BY start ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("sessdb: could not query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sessdb: could not get session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessdb: could not scan db for sessions: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sessdb: context error while retrieving sessions: %w", err)
	}

	return sessions, nil
}

// BestLap returns the session holding the fastest lap on track.
// BestLap returns sql.ErrNoRows when no lap was recorded on track.
func (db *DB) BestLap(ctx context.Context, track string) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s Session
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT track, car, start, tick_rate, records, laps, best_lap FROM sessions WHERE track=? AND best_lap > 0 ORDER BY best_lap ASC LIMIT 1",
		track,
	)
	if err != nil {
		return s, fmt.Errorf("sessdb: could not query best lap for %q: %w", track, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		s, err = scan(rows)
		if err != nil {
			return s, fmt.Errorf("sessdb: could not get best lap for %q: %w", track, err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("sessdb: could not scan db for best lap for %q: %w", track, err)
	}

	if err := ctx.Err(); err != nil {
		return s, fmt.Errorf("sessdb: context error while retrieving best lap for %q: %w", track, err)
	}

	if !found {
		return s, fmt.Errorf("sessdb: no lap recorded on %q: %w", track, sql.ErrNoRows)
	}

	return s, nil
}

func scan(rows *sql.Rows) (Session, error) {
	var s Session
	err := rows.Scan(&s.Track, &s.Car, &s.Start, &s.TickRate, &s.Records, &s.Laps, &s.BestLap)
	return s, err
}
