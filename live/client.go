// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package live reads variables from a shared-memory region continuously
// rewritten by a running producer.
//
// The producer publishes snapshots into rotating buffers.
// A Client copies the most recent buffer and verifies the producer did
// not start overwriting it during the copy, retrying a bounded number
// of times before reporting telem.ErrTornRead.
package live // import "github.com/go-lpc/irsdk/live"

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/go-lpc/irsdk/internal/mmap"
	"github.com/go-lpc/irsdk/sessinfo"
	"github.com/go-lpc/irsdk/telem"
	"golang.org/x/xerrors"
)

const (
	// MemMapFileName is the name of the producer's shared memory region.
	MemMapFileName = `Local\IRSDKMemMapFileName`
	// MemMapFileSize is the size of the producer's shared memory region.
	MemMapFileSize = 1164 * 1024
)

type state int

const (
	disconnected state = iota
	connected
	closed
)

// Client synchronizes with a live producer.
//
// A Client is safe for concurrent use.
type Client struct {
	mu  sync.Mutex
	src telem.Source
	cfg config

	state state
	hdr   telem.Header // layout seen at connection time
	vars  *telem.Vars
	buf   []byte // scratch snapshot

	tick   int32 // last verified tick
	update int32 // last observed session info counter

	frozen struct {
		ok     bool
		buf    []byte
		spare  []byte // staging buffer for the next Freeze
		tick   int32
		update int32
	}

	info struct {
		ok     bool
		update int32
		tree   *sessinfo.Tree
	}
}

// New returns a disconnected client reading from src.
func New(src telem.Source, opts ...Option) *Client {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{src: src, cfg: cfg}
}

// Open maps the named shared memory region and returns a disconnected
// client reading from it.
// An empty name selects the producer's well-known region.
// On platforms without named regions, name is interpreted as a file path.
func Open(name string, opts ...Option) (*Client, error) {
	var (
		h   *mmap.Handle
		err error
	)
	switch name {
	case "":
		h, err = mmap.OpenShared(MemMapFileName, MemMapFileSize)
	default:
		h, err = mmap.OpenShared(name, MemMapFileSize)
		if err != nil {
			h, err = mmap.Open(name)
		}
	}
	if err != nil {
		return nil, xerrors.Errorf("live: could not map region %q: %w", name, err)
	}
	return New(h, opts...), nil
}

// Connect reads the layout header and variable table.
// Connect fails with telem.ErrNotConnected when the producer is not
// running, and with telem.ErrFormat when the layout is invalid.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == closed {
		return xerrors.Errorf("live: client closed: %w", telem.ErrNotConnected)
	}
	c.reset()

	hdr, err := telem.ParseHeader(c.src)
	if err != nil {
		return xerrors.Errorf("live: could not parse header: %w", err)
	}
	if !hdr.Connected() {
		return xerrors.Errorf("live: producer not running: %w", telem.ErrNotConnected)
	}
	if hdr.NumBuf < 1 {
		return xerrors.Errorf("live: no snapshot buffer: %w", telem.ErrFormat)
	}

	vars, err := telem.ParseVars(c.src, hdr)
	if err != nil {
		return xerrors.Errorf("live: could not parse variables: %w", err)
	}

	c.hdr = hdr
	c.vars = vars
	c.buf = make([]byte, hdr.BufLen)
	c.tick = hdr.VarBufs[hdr.Latest()].TickCount
	c.update = hdr.SessionInfoUpdate
	c.state = connected

	c.cfg.msg.Printf(
		"connected (version=%d, tick-rate=%d Hz, vars=%d, buffers=%d)",
		hdr.Version, hdr.TickRate, vars.Len(), hdr.NumBuf,
	)
	return nil
}

// IsConnected reports whether the client is connected and the producer
// still flags the region as live.
// A cleared status moves the client to the disconnected state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return false
	}
	hdr, err := c.header()
	if err != nil {
		return false
	}
	return c.check(hdr) == nil
}

// Disconnect drops the layout, frozen snapshot and session info.
// The client may be connected again with Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == connected {
		c.reset()
	}
}

// Close disconnects the client and releases the underlying region when
// it is an io.Closer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == closed {
		return nil
	}
	c.reset()
	c.state = closed

	if closer, ok := c.src.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			return xerrors.Errorf("live: could not close region: %w", err)
		}
	}
	return nil
}

// Vars returns the variable table of the current connection, or nil
// when disconnected.
func (c *Client) Vars() *telem.Vars {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != connected {
		return nil
	}
	return c.vars
}

// Names returns the variable names in descriptor order.
func (c *Client) Names() []string {
	vars := c.Vars()
	if vars == nil {
		return nil
	}
	return vars.Names()
}

// Header returns the layout header seen at connection time.
func (c *Client) Header() telem.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hdr
}

// Get returns the value of the named variable.
//
// When frozen, values come from the pinned snapshot.
// Otherwise, each call samples a fresh verified snapshot.
// Unknown names yield an absent value and a nil error.
func (c *Client) Get(name string) (telem.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return telem.Value{}, c.notConnected()
	}

	vh, ok := c.vars.Lookup(name)
	if !ok {
		return telem.Value{}, nil
	}

	buf := c.frozen.buf
	if !c.frozen.ok {
		_, err := c.sample(c.buf)
		if err != nil {
			return telem.Value{}, err
		}
		buf = c.buf
	}

	v, err := telem.DecodeVar(buf, vh)
	if err != nil {
		return telem.Value{}, xerrors.Errorf("live: %w", err)
	}
	return v, nil
}

// Freeze pins a verified copy of the latest snapshot.
// Until Unfreeze, all reads are served from that copy.
// Freezing an already frozen client pins a new snapshot.
func (c *Client) Freeze() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return c.notConnected()
	}

	// the pinned snapshot is only replaced once the new one is verified.
	if cap(c.frozen.spare) < len(c.buf) {
		c.frozen.spare = make([]byte, len(c.buf))
	}
	buf := c.frozen.spare[:len(c.buf)]

	hdr, err := c.sample(buf)
	if err != nil {
		return err
	}

	if c.cfg.pinInfo {
		err = c.loadInfo(hdr)
		if err != nil {
			return err
		}
	}

	c.frozen.ok = true
	c.frozen.buf, c.frozen.spare = buf, c.frozen.buf
	c.frozen.tick = c.tick
	c.frozen.update = hdr.SessionInfoUpdate
	return nil
}

// Unfreeze releases the pinned snapshot.
func (c *Client) Unfreeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen.ok = false
}

// Frozen reports whether reads are served from a pinned snapshot.
func (c *Client) Frozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen.ok
}

// Snapshot copies the current snapshot into dst, growing it as needed,
// and returns it with its tick.
func (c *Client) Snapshot(dst []byte) ([]byte, int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return dst, 0, c.notConnected()
	}

	n := len(c.buf)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	if c.frozen.ok {
		copy(dst, c.frozen.buf)
		return dst, c.frozen.tick, nil
	}

	_, err := c.sample(dst)
	if err != nil {
		return dst, 0, err
	}
	return dst, c.tick, nil
}

// Tick returns the tick of the frozen snapshot, or the most recent tick
// published by the producer.
func (c *Client) Tick() (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return 0, c.notConnected()
	}
	if c.frozen.ok {
		return c.frozen.tick, nil
	}

	hdr, err := c.header()
	if err != nil {
		return 0, err
	}
	err = c.check(hdr)
	if err != nil {
		return 0, err
	}
	return hdr.VarBufs[hdr.Latest()].TickCount, nil
}

// SessionInfoUpdate returns the session info change counter.
func (c *Client) SessionInfoUpdate() (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return 0, c.notConnected()
	}
	if c.frozen.ok && c.cfg.pinInfo {
		return c.frozen.update, nil
	}

	hdr, err := c.header()
	if err != nil {
		return 0, err
	}
	err = c.check(hdr)
	if err != nil {
		return 0, err
	}
	c.update = hdr.SessionInfoUpdate
	return c.update, nil
}

// SessionInfo looks up a dotted path in the session info tree.
//
// The tree is parsed lazily and re-parsed only when the producer bumps
// the session info counter.
// While frozen, and unless disabled with WithFrozenSessionInfo, the tree
// observed at Freeze time is used.
func (c *Client) SessionInfo(path string) (sessinfo.Node, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != connected {
		return sessinfo.Node{}, false, c.notConnected()
	}

	if !(c.frozen.ok && c.cfg.pinInfo) {
		hdr, err := c.header()
		if err != nil {
			return sessinfo.Node{}, false, err
		}
		err = c.check(hdr)
		if err != nil {
			return sessinfo.Node{}, false, err
		}
		err = c.loadInfo(hdr)
		if err != nil {
			return sessinfo.Node{}, false, err
		}
	}

	node, ok := c.info.tree.Lookup(path)
	return node, ok, nil
}

// sample copies the latest snapshot into dst and verifies its tick did
// not move during the copy.
func (c *Client) sample(dst []byte) (telem.Header, error) {
	var (
		hdr telem.Header
		err error
	)
	for attempt := 0; attempt <= c.cfg.retries; attempt++ {
		hdr, err = c.header()
		if err != nil {
			return hdr, err
		}
		err = c.check(hdr)
		if err != nil {
			return hdr, err
		}

		i := hdr.Latest()
		buf := hdr.VarBufs[i]
		if buf.BufOffset < 0 || int(buf.BufOffset)+len(dst) > c.src.Len() {
			c.reset()
			return hdr, xerrors.Errorf(
				"live: buffer %d [%d, +%d] outside region (len=%d): %w",
				i, buf.BufOffset, len(dst), c.src.Len(), telem.ErrFormat,
			)
		}

		_, err = c.src.ReadAt(dst, int64(buf.BufOffset))
		if err != nil {
			return hdr, xerrors.Errorf("live: could not read buffer %d: %w", i, err)
		}

		tick, err := c.readI32(telem.VarBufTickOffset(i))
		if err != nil {
			return hdr, err
		}
		if tick == buf.TickCount {
			c.tick = tick
			c.update = hdr.SessionInfoUpdate
			return hdr, nil
		}
	}

	return hdr, xerrors.Errorf(
		"live: snapshot overwritten during %d attempts: %w",
		c.cfg.retries+1, telem.ErrTornRead,
	)
}

// loadInfo (re)parses the session info when its counter changed.
// The counter is re-read after the copy and the copy retried when the
// producer rewrote the text meanwhile.
func (c *Client) loadInfo(hdr telem.Header) error {
	if c.info.ok && c.info.update == hdr.SessionInfoUpdate {
		return nil
	}

	const updateOffset = 12
	for attempt := 0; attempt <= c.cfg.retries; attempt++ {
		err := c.checkInfo(hdr)
		if err != nil {
			return err
		}

		raw := make([]byte, hdr.SessionInfoLen)
		_, err = c.src.ReadAt(raw, int64(hdr.SessionInfoOffset))
		if err != nil {
			return xerrors.Errorf("live: could not read session info: %w", err)
		}

		update, err := c.readI32(updateOffset)
		if err != nil {
			return err
		}
		if update != hdr.SessionInfoUpdate {
			hdr, err = c.header()
			if err != nil {
				return err
			}
			continue
		}

		tree, err := sessinfo.Parse(raw)
		if err != nil {
			return xerrors.Errorf("live: could not parse session info (update=%d): %w", update, err)
		}
		if c.info.ok {
			c.cfg.msg.Printf("session info changed (update=%d)", update)
		}
		c.info.ok = true
		c.info.update = update
		c.info.tree = tree
		c.update = update
		return nil
	}

	return xerrors.Errorf(
		"live: session info rewritten during %d attempts: %w",
		c.cfg.retries+1, telem.ErrTornRead,
	)
}

// header reads the current layout header without validation.
func (c *Client) header() (telem.Header, error) {
	var (
		hdr telem.Header
		raw = make([]byte, telem.HeaderSize)
	)
	_, err := c.src.ReadAt(raw, 0)
	if err != nil {
		return hdr, xerrors.Errorf("live: could not read header: %w", err)
	}
	err = hdr.UnmarshalBinary(raw)
	if err != nil {
		return hdr, xerrors.Errorf("live: %w", err)
	}
	return hdr, nil
}

// check moves the client to the disconnected state when the producer
// cleared its status or changed the layout seen at connection time.
func (c *Client) check(hdr telem.Header) error {
	switch {
	case !hdr.Connected():
		c.cfg.msg.Printf("producer disconnected")
		c.reset()
		return xerrors.Errorf("live: producer disconnected: %w", telem.ErrNotConnected)
	case hdr.NumBuf != c.hdr.NumBuf,
		hdr.BufLen != c.hdr.BufLen,
		hdr.NumVars != c.hdr.NumVars,
		hdr.VarHeaderOffset != c.hdr.VarHeaderOffset:
		c.cfg.msg.Printf("layout changed, reconnection needed")
		c.reset()
		return xerrors.Errorf("live: layout changed: %w", telem.ErrNotConnected)
	}
	return nil
}

// checkInfo verifies the session info block declared by hdr lies
// within the region.
func (c *Client) checkInfo(hdr telem.Header) error {
	var (
		off  = int64(hdr.SessionInfoOffset)
		n    = int64(hdr.SessionInfoLen)
		size = int64(c.src.Len())
	)
	if off < 0 || n < 0 || off+n > size {
		return xerrors.Errorf(
			"live: session info [%d, +%d] outside region (len=%d): %w",
			off, n, size, telem.ErrFormat,
		)
	}
	return nil
}

func (c *Client) readI32(off int64) (int32, error) {
	var raw [4]byte
	_, err := c.src.ReadAt(raw[:], off)
	if err != nil {
		return 0, xerrors.Errorf("live: could not read counter at %d: %w", off, err)
	}
	return int32(binary.LittleEndian.Uint32(raw[:])), nil
}

func (c *Client) notConnected() error {
	if c.state == closed {
		return xerrors.Errorf("live: client closed: %w", telem.ErrNotConnected)
	}
	return xerrors.Errorf("live: client not connected: %w", telem.ErrNotConnected)
}

// reset drops all per-connection state.
func (c *Client) reset() {
	if c.state == connected {
		c.state = disconnected
	}
	c.hdr = telem.Header{}
	c.vars = nil
	c.frozen.ok = false
	c.info.ok = false
	c.info.tree = nil
}
