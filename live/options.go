// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package live

import (
	"io"
	"log"
	"os"
)

const (
	defaultRetries = 3
)

type config struct {
	retries int         // number of re-reads after a torn read
	msg     *log.Logger // connection and session-info events
	pinInfo bool        // serve the session info seen at freeze time while frozen
}

func newConfig() config {
	return config{
		retries: defaultRetries,
		msg:     log.New(os.Stdout, "live: ", 0),
		pinInfo: true,
	}
}

// Option configures a live Client.
type Option func(*config)

// WithRetries sets the number of times a torn read is retried before
// reporting telem.ErrTornRead.
func WithRetries(n int) Option {
	return func(cfg *config) {
		if n < 0 {
			n = 0
		}
		cfg.retries = n
	}
}

// WithLogger sets the logger used to report connection events.
// A nil logger discards them.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		if msg == nil {
			msg = log.New(io.Discard, "", 0)
		}
		cfg.msg = msg
	}
}

// WithFrozenSessionInfo configures whether SessionInfo keeps serving the
// tree observed at Freeze time until Unfreeze.
func WithFrozenSessionInfo(pin bool) Option {
	return func(cfg *config) {
		cfg.pinInfo = pin
	}
}
