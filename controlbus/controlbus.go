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

// Package controlbus broadcasts gateway lifecycle transitions (§4.P)
// over a `go.nanomsg.org/mangos/v3` bus-protocol socket bound in-process
// via the inproc transport. It is a convenience layer over §4.C's
// sentinel-queue producer counts, which remain the authoritative
// blocking mechanism: a subscriber that misses a transition, or never
// subscribes at all, still gets correct behavior by blocking on
// `suspended`/`isolated`. The bus only saves components the trouble of
// polling lifecycle.Controller.State() on every message.
package controlbus

import (
	"encoding/json"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/bus"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/lifecycle"
)

// Transition is the wire payload published on every lifecycle state
// change.
type Transition struct {
	State    lifecycle.State `json:"state"`
	Previous lifecycle.State `json:"previous"`
	At       time.Time       `json:"at"`
}

// Bus wraps one end of the in-process bus socket, either the publisher
// side owned by the lifecycle controller's owner or a subscriber side
// created with NewSubscriber. cmd/bearerbox creates only the publisher.
type Bus struct {
	sock mangos.Socket
	log  gwlog.T
}

// Addr is the well-known in-process address every component dials.
// There is exactly one bus per bearerbox process, so a fixed name is
// sufficient; it never crosses a real network transport.
const Addr = "inproc://bearergw-lifecycle"

// NewPublisher binds the bus socket at addr. Exactly one publisher
// exists per process: the lifecycle controller's owner, typically
// cmd/bearerbox's main.
func NewPublisher(log gwlog.T, addr string) (*Bus, error) {
	sock, err := bus.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, err
	}
	return &Bus{sock: sock, log: log}, nil
}

// NewSubscriber dials addr. Any number of subscribers may connect; the
// bus protocol fans a Publish out to every connected peer.
func NewSubscriber(log gwlog.T, addr string) (*Bus, error) {
	sock, err := bus.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, err
	}
	return &Bus{sock: sock, log: log}, nil
}

// Publish broadcasts a transition to every connected subscriber. It
// never blocks indefinitely: the bus protocol drops a message to a peer
// whose receive buffer is full rather than stalling the publisher.
func (b *Bus) Publish(t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return b.sock.Send(payload)
}

// Recv blocks for the next transition. Callers that want a
// non-blocking reactor should run Recv in its own goroutine, as Watch
// does.
func (b *Bus) Recv() (Transition, error) {
	raw, err := b.sock.Recv()
	if err != nil {
		return Transition{}, err
	}
	var t Transition
	if err := json.Unmarshal(raw, &t); err != nil {
		return Transition{}, err
	}
	return t, nil
}

// Close releases the underlying socket.
func (b *Bus) Close() error {
	return b.sock.Close()
}

// Reactor is the driver-facing half of §4.P: components that want to
// shortcut the sentinel-queue poll implement this and register with
// Watch.
type Reactor interface {
	Suspend() error
	Resume() error
}

// Watch starts a goroutine that reads transitions off b and calls the
// matching Reactor method: SUSPENDED or ISOLATED triggers Suspend,
// RUNNING triggers Resume. SHUTDOWN and DEAD are left to the driver's
// own Shutdown() hook, called directly by the lifecycle controller
// rather than over the bus. Watch returns immediately; stop it by
// closing b.
func Watch(b *Bus, r Reactor) {
	go func() {
		for {
			t, err := b.Recv()
			if err != nil {
				return
			}
			switch t.State {
			case lifecycle.Suspended, lifecycle.Isolated:
				if err := r.Suspend(); err != nil && b.log != nil {
					b.log.Warnf("controlbus: reactor suspend failed: %v", err)
				}
			case lifecycle.Running:
				if err := r.Resume(); err != nil && b.log != nil {
					b.log.Warnf("controlbus: reactor resume failed: %v", err)
				}
			}
		}
	}()
}

// PublishHook adapts a Bus into a lifecycle.TransitionFunc, to be passed
// to lifecycle.WithTransitionHook.
func PublishHook(b *Bus) lifecycle.TransitionFunc {
	return func(previous, next lifecycle.State, at time.Time) {
		if err := b.Publish(Transition{State: next, Previous: previous, At: at}); err != nil && b.log != nil {
			b.log.Warnf("controlbus: publish failed: %v", err)
		}
	}
}
