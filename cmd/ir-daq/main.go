// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ir-daq starts a TDAQ server publishing live telemetry snapshots.
//
// Each frame sent on the /telemetry output holds the tick of the
// snapshot (4 bytes, little-endian) followed by the raw snapshot.
package main // import "github.com/go-lpc/irsdk/cmd/ir-daq"

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/irsdk"
	"github.com/go-lpc/irsdk/live"
	"github.com/go-lpc/irsdk/telem"
)

func main() {
	cmd := flags.New()

	dev := newDevice("")
	if len(cmd.Args) > 0 {
		dev.name = cmd.Args[0]
	}

	vers, _ := irsdk.Version()
	log.Printf("ir-daq: irsdk %s", vers)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/telemetry", dev.telemetry)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type device struct {
	name string // name of the shared memory region

	open func(name string) (*live.Client, error)

	mu   sync.Mutex
	cli  *live.Client
	freq time.Duration // sampling period
	last int32         // tick of the last published snapshot
	seen bool
	buf  []byte

	n    int
	data chan []byte
}

func newDevice(name string) *device {
	return &device{
		name: name,
		open: func(name string) (*live.Client, error) {
			return live.Open(name, live.WithLogger(log.New(os.Stdout, "ir-daq: ", 0)))
		},
		freq: time.Second / 60,
	}
}

func (dev *device) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return nil
}

func (dev *device) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.init()
	if err != nil {
		ctx.Msg.Errorf("could not initialize telemetry: %+v", err)
		return err
	}
	return nil
}

func (dev *device) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return dev.reset()
}

func (dev *device) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	dev.mu.Lock()
	freq := dev.freq
	dev.mu.Unlock()
	ctx.Msg.Debugf("received /start command... (period=%v)", freq)
	return nil
}

func (dev *device) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	dev.mu.Lock()
	n := dev.n
	dev.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (dev *device) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	dev.close()
	return nil
}

func (dev *device) init() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.connect()
}

func (dev *device) reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.release()
	return dev.connect()
}

func (dev *device) close() {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.release()
}

// connect opens and connects a new client. dev.mu must be held.
func (dev *device) connect() error {
	cli, err := dev.open(dev.name)
	if err != nil {
		return fmt.Errorf("could not open telemetry region: %w", err)
	}

	err = cli.Connect()
	if err != nil {
		_ = cli.Close()
		return fmt.Errorf("could not connect to telemetry producer: %w", err)
	}

	dev.cli = cli
	if rate := cli.Header().TickRate; rate > 0 {
		dev.freq = time.Second / time.Duration(rate)
	}
	dev.data = make(chan []byte, 1024)
	dev.n = 0
	dev.seen = false
	return nil
}

// release closes the current client. dev.mu must be held.
func (dev *device) release() {
	if dev.cli == nil {
		return
	}
	_ = dev.cli.Close()
	dev.cli = nil
}

func (dev *device) telemetry(ctx tdaq.Context, dst *tdaq.Frame) error {
	dev.mu.Lock()
	data := dev.data
	dev.mu.Unlock()

	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case frame := <-data:
		dst.Body = frame
	}
	return nil
}

func (dev *device) run(ctx tdaq.Context) error {
	dev.mu.Lock()
	freq := dev.freq
	dev.mu.Unlock()

	tck := time.NewTicker(freq)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tck.C:
			err := dev.publish()
			switch {
			case errors.Is(err, telem.ErrNotConnected):
				ctx.Msg.Errorf("telemetry producer went away: %+v", err)
				return err
			case errors.Is(err, telem.ErrTornRead):
				ctx.Msg.Debugf("skipping torn snapshot: %+v", err)
			case err != nil:
				return err
			}
		}
	}
}

// publish queues the latest snapshot, unless already queued or no
// consumer keeps up.
func (dev *device) publish() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	frame, ok, err := dev.sample()
	if err != nil || !ok {
		return err
	}
	select {
	case dev.data <- frame:
		dev.n++
	default:
	}
	return nil
}

// sample returns a frame holding the latest snapshot, and whether that
// snapshot was not already published. dev.mu must be held.
func (dev *device) sample() ([]byte, bool, error) {
	if dev.cli == nil {
		return nil, false, fmt.Errorf("device not initialized: %w", telem.ErrNotConnected)
	}

	var (
		tick int32
		err  error
	)
	dev.buf, tick, err = dev.cli.Snapshot(dev.buf)
	if err != nil {
		return nil, false, err
	}
	if dev.seen && tick == dev.last {
		return nil, false, nil
	}
	dev.seen = true
	dev.last = tick

	frame := make([]byte, 4+len(dev.buf))
	binary.LittleEndian.PutUint32(frame, uint32(tick))
	copy(frame[4:], dev.buf)
	return frame, true, nil
}
