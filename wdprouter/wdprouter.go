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

// Package wdprouter implements the WDP router (§4.F): a single
// goroutine draining `outgoing_wdp` and handing each datagram to a UDP
// driver, and the driver's receive side producing into `incoming_wdp`
// while blocking on the isolated/suspended gates.
package wdprouter

import (
	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// UDPDriver is the contract a concrete WAP bearer implementation
// satisfies: deliver an outbound datagram, shut down, and report status.
// The production implementation is udpdriver.Driver, which
// cmd/bearerbox binds; tests use a fake.
type UDPDriver interface {
	Deliver(dg *message.WDP) error
	Shutdown() error
	Status(format string) (*gabs.Container, error)
}

type flowThreads interface {
	RegisterFlowThread()
	DeregisterFlowThread()
}

// Router is the §4.F component: it owns the routing loop over
// `outgoing_wdp` and exposes Shutdown so the lifecycle controller can
// drive it as a lifecycle.WDPDriver.
type Router struct {
	log gwlog.T

	outgoing *queue.Queue
	driver   UDPDriver
}

// New builds an unstarted Router bound to the shared outgoing_wdp
// queue and the concrete driver it dispatches to.
func New(log gwlog.T, outgoing *queue.Queue, driver UDPDriver) *Router {
	return &Router{log: log, outgoing: outgoing, driver: driver}
}

// Start launches the routing goroutine, registering it as a flow
// thread so lifecycle.Controller.Wait blocks on it draining.
func (r *Router) Start(ft flowThreads) {
	r.outgoing.AddProducer()
	ft.RegisterFlowThread()
	go func() {
		defer ft.DeregisterFlowThread()
		r.route()
	}()
}

func (r *Router) route() {
	for {
		msg, err := r.outgoing.Consume()
		if err != nil {
			return // queue.EndOfStream
		}
		if msg.Kind != message.KindWDP {
			continue
		}
		if err := r.driver.Deliver(msg.WDP); err != nil {
			r.log.Warnf("wdprouter: driver rejected datagram %d: %v", msg.ID, err)
		}
	}
}

// Shutdown implements lifecycle.WDPDriver: shuts the driver down and
// removes the routing loop's producer hold so outgoing_wdp drains to
// EndOfStream.
func (r *Router) Shutdown() error {
	err := r.driver.Shutdown()
	r.outgoing.RemoveProducer()
	return err
}

// Status reports the underlying driver's status fragment for the
// admin `/status` surface (§4.Q).
func (r *Router) Status(format string) (*gabs.Container, error) {
	return r.driver.Status(format)
}
