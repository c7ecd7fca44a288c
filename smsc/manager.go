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

	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// Manager is the §4.D SMSC manager: a registry of started drivers, a
// routing loop draining `outgoing_sms` to the right one by
// `accepted_smsc`, and the aggregate Suspend/Resume/Shutdown the
// lifecycle controller calls through lifecycle.SMSCDriver.
type Manager struct {
	log gwlog.T

	outgoing  *queue.Queue
	incoming  *queue.Queue
	suspended *queue.Gate

	mu      sync.Mutex
	drivers map[string]Driver
	order   []string // round-robin order for unrouted outbound messages
	next    int
}

// New builds an unstarted Manager bound to the shared queues it drives.
func New(log gwlog.T, outgoing, incoming *queue.Queue, suspended *queue.Gate) *Manager {
	return &Manager{
		log:       log,
		outgoing:  outgoing,
		incoming:  incoming,
		suspended: suspended,
		drivers:   make(map[string]Driver),
	}
}

// Start instantiates and starts one driver per Config, then launches
// the routing loop that drains `outgoing_sms`. The routing loop
// registers itself as a flow thread with flowThreads, so the lifecycle
// controller's Wait blocks on it draining before reaching DEAD.
func (m *Manager) Start(cfgs []Config, flowThreads interface {
	RegisterFlowThread()
	DeregisterFlowThread()
}) error {
	m.mu.Lock()
	for _, cfg := range cfgs {
		factory, ok := factories[cfg.Type]
		if !ok {
			m.mu.Unlock()
			return ErrUnknownDriverType{Type: cfg.Type}
		}
		d := factory()
		if err := d.Start(cfg, m.incoming, m.suspended); err != nil {
			m.mu.Unlock()
			return err
		}
		m.drivers[d.ID()] = d
		m.order = append(m.order, d.ID())
	}
	m.mu.Unlock()

	m.outgoing.AddProducer() // the routing loop is a consumer, not a producer, of outgoing_sms; registering here marks it a flow thread via the caller instead
	flowThreads.RegisterFlowThread()
	go func() {
		defer flowThreads.DeregisterFlowThread()
		m.route()
	}()
	return nil
}

// route drains outgoing_sms until EndOfStream, handing each message to
// the driver named by its SMSCID, or round-robining across all drivers
// when unset.
func (m *Manager) route() {
	for {
		msg, err := m.outgoing.Consume()
		if err != nil {
			return // queue.EndOfStream: upstream producers are gone
		}
		if msg.Kind != message.KindSMS {
			continue
		}
		d, ok := m.pick(msg.SMS.SMSCID)
		if !ok {
			m.log.Warnf("smsc: no route for smsc_id=%q, dropping outbound message %d", msg.SMS.SMSCID, msg.ID)
			continue
		}
		if err := d.Deliver(msg); err != nil {
			m.log.Warnf("smsc: driver %s rejected message %d: %v", d.ID(), msg.ID, err)
		}
	}
}

// pick selects the driver for an outbound message: the named driver if
// smscID is set (ok is false when no driver has that ID; there is no
// round-robin fallback), otherwise the next driver in round-robin order.
func (m *Manager) pick(smscID string) (Driver, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if smscID != "" {
		d, ok := m.drivers[smscID]
		return d, ok
	}
	if len(m.order) == 0 {
		return nil, false
	}
	id := m.order[m.next%len(m.order)]
	m.next++
	return m.drivers[id], true
}

// Suspend implements lifecycle.SMSCDriver: suspends every registered
// driver, collecting the first error.
func (m *Manager) Suspend() error {
	return m.fanOut(func(d Driver) error { return d.Suspend() })
}

// Resume implements lifecycle.SMSCDriver.
func (m *Manager) Resume() error {
	return m.fanOut(func(d Driver) error { return d.Resume() })
}

// Shutdown implements lifecycle.SMSCDriver: shuts down every driver and
// removes the routing loop's hold on outgoing_sms so it drains to
// EndOfStream.
func (m *Manager) Shutdown() error {
	err := m.fanOut(func(d Driver) error { return d.Shutdown() })
	m.outgoing.RemoveProducer()
	return err
}

func (m *Manager) fanOut(f func(Driver) error) error {
	m.mu.Lock()
	drivers := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		drivers = append(drivers, d)
	}
	m.mu.Unlock()

	var firstErr error
	for _, d := range drivers {
		if err := f(d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Status assembles a status fragment for the admin `/status` surface
// (§4.Q): one entry per registered driver, keyed by its ID.
func (m *Manager) Status(format string) (*gabs.Container, error) {
	m.mu.Lock()
	drivers := make(map[string]Driver, len(m.drivers))
	for id, d := range m.drivers {
		drivers[id] = d
	}
	m.mu.Unlock()

	out := gabs.New()
	for id, d := range drivers {
		frag, err := d.Status(format)
		if err != nil {
			return nil, err
		}
		if _, err := out.SetP(frag.Data(), id); err != nil {
			return nil, err
		}
	}
	return out, nil
}
