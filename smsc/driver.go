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

// Package smsc implements the SMSC manager (§4.D): the registry of
// opaque SMSC drivers, each produced into/consumed from the shared
// `incoming_sms`/`outgoing_sms` queues, fanned out to by
// `accepted_smsc` routing metadata, and collectively driven by the
// lifecycle controller's suspend/resume/shutdown calls.
package smsc

import (
	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// Config is one `group = smsc` section's settings, opaque to the
// manager beyond the fields it routes on; everything else is the
// driver's own business.
type Config struct {
	ID       string            // smsc-id; routing key for accepted_smsc
	Type     string            // driver type, e.g. "loopback"
	Settings map[string]string // remaining group keys, driver-specific
}

// Driver is the contract a concrete SMSC connection type implements
// (§4.D): start/suspend/resume/shutdown plus a status snapshot. A
// driver is handed the shared incoming queue at Start and is expected
// to:
//   - Produce into it for every MO message it receives from the network;
//   - block on the suspended gate before each receive so it stops
//     ingesting while suspended or isolated;
//   - accept outbound deliveries through Deliver, honoring accepted_smsc
//     routing by rejecting (surfacing a routing failure) anything it
//     cannot carry.
type Driver interface {
	ID() string
	Start(cfg Config, incoming *queue.Queue, suspended *queue.Gate) error
	Suspend() error
	Resume() error
	Shutdown() error
	Status(format string) (*gabs.Container, error)
	// Deliver hands one outbound SMS to the driver. The manager calls
	// this from its routing loop; Deliver must not block indefinitely.
	Deliver(msg *message.Message) error
}

// Factory builds a new, unstarted Driver instance for a Config.Type.
// Concrete driver packages register themselves by type name; bearergw
// itself ships only the loopback driver used for local testing and as
// a reference implementation of the contract.
type Factory func() Driver

var factories = map[string]Factory{
	"loopback": func() Driver { return NewLoopback() },
}

// RegisterFactory makes a new driver type available to Config.Type.
// Called from a driver package's init(), or directly by tests.
func RegisterFactory(typeName string, f Factory) {
	factories[typeName] = f
}

// ErrUnknownDriverType is returned by Manager.Start for a Config whose
// Type has no registered Factory.
type ErrUnknownDriverType struct{ Type string }

func (e ErrUnknownDriverType) Error() string {
	return "smsc: unknown driver type " + e.Type
}
