// Copyright 2024 The bearergw Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the
// License is located at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package boxc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// Conn is one accepted box connection: an identify handshake, a read
// pump feeding the shared incoming queue, and a write pump draining a
// per-connection outbound queue. Both pumps run under one errgroup so
// either side exiting tears down the other.
type Conn struct {
	nc  net.Conn
	log gwlog.T

	boxcID atomic.Value // string; empty until the identify handshake lands

	outbound *queue.Queue // per-connection outbound queue, owned by Manager

	mu      sync.Mutex
	load    int32
	closed  bool
}

// newConn wraps an accepted net.Conn; outbound is the per-connection
// queue the manager routes outgoing messages into.
func newConn(nc net.Conn, log gwlog.T, outbound *queue.Queue) *Conn {
	c := &Conn{nc: nc, log: log, outbound: outbound}
	c.boxcID.Store("")
	return c
}

// BoxcID returns the connection's bound identity, or "" before the
// identify handshake completes.
func (c *Conn) BoxcID() string { return c.boxcID.Load().(string) }

// Load returns the most recently heartbeated load counter.
func (c *Conn) Load() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load
}

// handshake blocks for the first frame and requires it to be an
// admin(identify) carrying a non-empty boxc_id (§4.E).
func (c *Conn) handshake() error {
	msg, err := ReadFrame(c.nc)
	if err != nil {
		return err
	}
	if msg.Kind != message.KindAdmin || msg.Admin.Command != message.AdminIdentify || msg.Admin.BoxcID == "" {
		return errNotIdentify
	}
	c.boxcID.Store(msg.Admin.BoxcID)
	checkVersion(c.log, msg.Admin.BoxcID, msg.Admin.Version)
	return nil
}

var errNotIdentify = errIdentify("boxc: first frame was not admin(identify)")

type errIdentify string

func (e errIdentify) Error() string { return string(e) }

// run drives the read and write pumps until either exits, then closes
// the connection and returns the first non-nil error (io.EOF on an
// orderly peer close is reported like any other pump exit; callers
// that only care about unexpected failures should check errors.Is
// against io.EOF themselves).
//
// onInbound receives every non-heartbeat frame read from the peer;
// heartbeat frames only update the connection's Load and are not passed
// on. Requeueing unfinished inbound work after a disconnect is left to
// the caller (Manager.requeuePending, §4.E).
func (c *Conn) run(ctx context.Context, onInbound func(*message.Message)) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.readPump(onInbound) })
	g.Go(func() error { return c.writePump(gctx) })

	err := g.Wait()
	c.close()
	return err
}

func (c *Conn) readPump(onInbound func(*message.Message)) error {
	for {
		msg, err := ReadFrame(c.nc)
		if err != nil {
			return err
		}
		if msg.Kind == message.KindHeartbeat {
			c.mu.Lock()
			c.load = msg.Heartbeat.Load
			c.mu.Unlock()
			continue
		}
		onInbound(msg)
	}
}

func (c *Conn) writePump(ctx context.Context) error {
	for {
		msg, err := c.outbound.Consume()
		if err != nil {
			return err // queue.EndOfStream: manager shut this connection's queue down
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := WriteFrame(c.nc, msg); err != nil {
			return err
		}
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.nc.Close()
}
