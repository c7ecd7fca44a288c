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

package smsc

import (
	"sync"
	"sync/atomic"

	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// Loopback is a reference Driver: every outbound message Deliver
// receives is produced straight back into incoming_sms as if the
// network had echoed it, with sender and receiver swapped. It exists
// so the manager, dispatcher and box connections can be exercised
// end-to-end without a real network SMSC.
type Loopback struct {
	id string

	mu        sync.Mutex
	incoming  *queue.Queue
	suspended *queue.Gate
	started   bool

	sent     int64
	received int64
}

// NewLoopback constructs an unstarted Loopback driver.
func NewLoopback() *Loopback {
	return &Loopback{id: "loopback"}
}

func (l *Loopback) ID() string { return l.id }

// Start records the shared queues and the driver's configured ID; the
// loopback driver does no network setup of its own.
func (l *Loopback) Start(cfg Config, incoming *queue.Queue, suspended *queue.Gate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg.ID != "" {
		l.id = cfg.ID
	}
	l.incoming = incoming
	l.suspended = suspended
	l.started = true
	return nil
}

func (l *Loopback) Suspend() error { return nil }
func (l *Loopback) Resume() error  { return nil }
func (l *Loopback) Shutdown() error {
	l.mu.Lock()
	l.started = false
	l.mu.Unlock()
	return nil
}

// Deliver loops an outbound SMS back in as inbound, swapping the
// sender and receiver the way a real handset reply would arrive, and
// blocks on the suspended gate first so a suspended gateway does not
// keep echoing traffic behind the core's back.
func (l *Loopback) Deliver(msg *message.Message) error {
	l.mu.Lock()
	incoming, suspended := l.incoming, l.suspended
	l.mu.Unlock()

	if suspended != nil {
		suspended.WaitOpen()
	}

	atomic.AddInt64(&l.sent, 1)

	reply := msg.Clone()
	reply.SMS.Sender, reply.SMS.Receiver = msg.SMS.Receiver, msg.SMS.Sender
	reply.SMS.SMSCID = l.id

	if incoming == nil {
		return nil
	}
	if err := incoming.Produce(reply); err != nil {
		return err
	}
	atomic.AddInt64(&l.received, 1)
	return nil
}

// Status reports the driver's running state and lifetime counters; the
// format parameter is accepted for interface symmetry with the other
// status producers but does not change the shape of this fragment.
func (l *Loopback) Status(format string) (*gabs.Container, error) {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	out := gabs.New()
	if _, err := out.Set(l.id, "id"); err != nil {
		return nil, err
	}
	if _, err := out.Set("loopback", "type"); err != nil {
		return nil, err
	}
	if _, err := out.Set(started, "running"); err != nil {
		return nil, err
	}
	if _, err := out.Set(atomic.LoadInt64(&l.sent), "sent"); err != nil {
		return nil, err
	}
	if _, err := out.Set(atomic.LoadInt64(&l.received), "received"); err != nil {
		return nil, err
	}
	return out, nil
}
