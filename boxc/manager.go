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
	"time"

	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/heartbeat"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// DefaultLoadMargin is the default for Manager.LoadMargin: a box whose
// reported load exceeds the minimum among its peers by more than this
// is skipped in round-robin selection while an alternative exists.
const DefaultLoadMargin = 10

// entry tracks one accepted connection and the bookkeeping the manager
// needs to route to it and to requeue its unfinished inbound work.
type entry struct {
	conn     *Conn
	outbound *queue.Queue

	mu      sync.Mutex
	pending map[int64]*message.Message // read from the socket, not yet handed to incoming
}

// Manager is the §4.E box connection manager: it accepts connections
// on an SMS and a WAP listener, binds each to a boxc_id via the
// identify handshake, and routes incoming_sms traffic out to whichever
// connected box is the best match.
type Manager struct {
	log      gwlog.T
	incoming *queue.Queue // shared incoming_sms, this manager's connections produce into it

	mu      sync.Mutex
	entries []*entry
	next    int

	LoadMargin int32

	// HeartbeatFreq governs the per-connection heartbeat producer
	// bearerbox runs against every accepted box, reporting bearerbox's
	// own load back down the same connection so a box can watch its
	// core's health the same way bearerbox watches the box's (§4.K).
	HeartbeatFreq time.Duration // <= 0 uses heartbeat.DefaultFreq
}

// New builds an unstarted Manager bound to the shared incoming_sms
// queue every accepted connection's read pump produces into.
func New(log gwlog.T, incoming *queue.Queue) *Manager {
	return &Manager{log: log, incoming: incoming, LoadMargin: DefaultLoadMargin}
}

// queueSender adapts a *queue.Queue to heartbeat.Sender so a Producer
// can publish onto a connection's existing outbound queue without that
// queue needing to know about heartbeats at all.
type queueSender struct{ q *queue.Queue }

func (s queueSender) Send(msg *message.Message) error { return s.q.Produce(msg) }

// Serve accepts connections on ln until ctx is cancelled or Accept
// fails, handshaking and registering each one. It returns once the
// listener stops producing new connections; callers typically run it
// in its own goroutine per listener (one for the SMS port, one for the
// WAP port, per §4.E/§5).
func (m *Manager) Serve(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		go m.handle(ctx, nc)
	}
}

func (m *Manager) handle(ctx context.Context, nc net.Conn) {
	outbound := queue.New("boxc-outbound", 0)
	outbound.AddProducer()
	c := newConn(nc, m.log, outbound)

	if err := c.handshake(); err != nil {
		m.log.Warnf("boxc: handshake failed from %s: %v", nc.RemoteAddr(), err)
		nc.Close()
		return
	}

	e := &entry{conn: c, outbound: outbound, pending: make(map[int64]*message.Message)}
	m.register(e)
	defer m.deregister(e)

	m.incoming.AddProducer()
	defer m.incoming.RemoveProducer()

	hb := heartbeat.New(m.log, m.HeartbeatFreq, func() int32 {
		return int32(m.Connected())
	}, queueSender{q: outbound})
	if err := hb.Start(); err != nil {
		m.log.Warnf("boxc: could not start heartbeat producer for %s: %v", nc.RemoteAddr(), err)
	} else {
		defer hb.Stop()
	}

	err := c.run(ctx, func(msg *message.Message) {
		e.mu.Lock()
		e.pending[msg.ID] = msg
		e.mu.Unlock()

		if perr := m.incoming.Produce(msg); perr != nil {
			m.log.Warnf("boxc: incoming_sms closed, dropping message %d from %s", msg.ID, c.BoxcID())
		}

		e.mu.Lock()
		delete(e.pending, msg.ID)
		e.mu.Unlock()
	})
	if err != nil {
		m.log.Infof("boxc: connection %s (%s) closed: %v", nc.RemoteAddr(), c.BoxcID(), err)
	}

	m.requeuePending(e)
}

// requeuePending implements the disconnection rule of §4.E: messages
// accepted from the socket but not yet fully handed to incoming_sms go
// back once; anything already produced is gone from pending already.
func (m *Manager) requeuePending(e *entry) {
	e.mu.Lock()
	leftover := make([]*message.Message, 0, len(e.pending))
	for _, msg := range e.pending {
		leftover = append(leftover, msg)
	}
	e.pending = make(map[int64]*message.Message)
	e.mu.Unlock()

	for _, msg := range leftover {
		if err := m.incoming.Produce(msg); err != nil {
			m.log.Warnf("boxc: could not requeue message %d after disconnect: %v", msg.ID, err)
		}
	}
}

func (m *Manager) register(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *Manager) deregister(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.entries {
		if other == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	e.outbound.RemoveProducer()
}

// Route hands an outbound SMS to the best-matching connected smsbox:
// preference goes to a connection whose boxc_id matches preferredBoxcID,
// falling back to round-robin across every other connected box load
// permitting, per §4.E. It reports false if no box is connected at
// all.
func (m *Manager) Route(msg *message.Message, preferredBoxcID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return false
	}

	if preferredBoxcID != "" {
		for _, e := range m.entries {
			if e.conn.BoxcID() == preferredBoxcID {
				e.outbound.Produce(msg)
				return true
			}
		}
	}

	e := m.pickRoundRobinLocked()
	if e == nil {
		return false
	}
	e.outbound.Produce(msg)
	return true
}

// pickRoundRobinLocked walks m.entries starting after the last pick,
// skipping any box whose load exceeds the minimum observed load by
// more than LoadMargin while a lower-load alternative remains
// unvisited in this pass.
func (m *Manager) pickRoundRobinLocked() *entry {
	if len(m.entries) == 0 {
		return nil
	}

	minLoad := m.entries[0].conn.Load()
	for _, e := range m.entries[1:] {
		if l := e.conn.Load(); l < minLoad {
			minLoad = l
		}
	}

	n := len(m.entries)
	var fallback *entry
	for i := 0; i < n; i++ {
		idx := (m.next + i) % n
		e := m.entries[idx]
		if fallback == nil {
			fallback = e
		}
		if e.conn.Load() <= minLoad+m.LoadMargin {
			m.next = idx + 1
			return e
		}
	}
	m.next = (m.next + 1) % n
	return fallback // every box is over margin; take the next one anyway rather than drop
}

// Connected reports how many boxes are currently registered.
func (m *Manager) Connected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Status assembles a status fragment for the admin `/status` surface
// (§4.Q): one entry per connected box, keyed by its boxc_id.
func (m *Manager) Status(format string) (*gabs.Container, error) {
	m.mu.Lock()
	entries := make([]*entry, len(m.entries))
	copy(entries, m.entries)
	m.mu.Unlock()

	out := gabs.New()
	for _, e := range entries {
		id := e.conn.BoxcID()
		if _, err := out.SetP(e.conn.Load(), id+".load"); err != nil {
			return nil, err
		}
	}
	if _, err := out.SetP(len(entries), "connected"); err != nil {
		return nil, err
	}
	return out, nil
}
