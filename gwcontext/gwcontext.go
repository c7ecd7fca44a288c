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

// Package gwcontext defines the value that carries every shared piece of
// gateway state - the named queues, the sentinel gates, the lifecycle
// controller, the loaded translation table, the logger and the config -
// across the goroutines cmd/bearerbox spawns (§4.O). Inspired by
// agent/context.T, it is passed by pointer as a single value rather than
// threaded as a dozen separate constructor arguments.
package gwcontext

import (
	"github.com/kannelgw/bearergw/gwconfig"
	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/lifecycle"
	"github.com/kannelgw/bearergw/queue"
	"github.com/kannelgw/bearergw/urltrans"
)

// Queues bundles the four named message queues (§4.A) plus the two
// sentinel gates (§4.C) that every flow thread in the process shares.
//
// The dispatcher's pending-HTTP-request table (§4.H/§9) is deliberately
// not surfaced here: it is owned and locked entirely within
// dispatch.Dispatcher, and nothing outside that package ever needs to
// reach it, so carrying a reference on the shared context would only
// widen its blast radius for no caller's benefit.
type Queues struct {
	IncomingSMS *queue.Queue
	OutgoingSMS *queue.Queue
	IncomingWDP *queue.Queue
	OutgoingWDP *queue.Queue

	Suspended *queue.Gate
	Isolated  *queue.Gate
}

// T is the shared context value. Every field is set once at construction
// in cmd/bearerbox and never reassigned afterwards; concurrent access is
// safe because nothing here is mutated through T itself (the mutable
// state underneath - queue contents, controller state - already has its
// own synchronization).
type T struct {
	tags []string

	log    gwlog.T
	config *gwconfig.Config
	queues Queues

	controller *lifecycle.Controller
	table      *urltrans.Table
}

// New builds the process-wide context. table may be nil only in tests
// that don't exercise dispatch.
func New(log gwlog.T, config *gwconfig.Config, queues Queues, controller *lifecycle.Controller, table *urltrans.Table) *T {
	return &T{
		log:        log,
		config:     config,
		queues:     queues,
		controller: controller,
		table:      table,
	}
}

// Log returns the context's logger.
func (c *T) Log() gwlog.T { return c.log }

// Config returns the loaded configuration.
func (c *T) Config() *gwconfig.Config { return c.config }

// Queues returns the shared queue bundle.
func (c *T) Queues() Queues { return c.queues }

// Controller returns the lifecycle state machine every admin operation
// and signal handler drives.
func (c *T) Controller() *lifecycle.Controller { return c.controller }

// Table returns the loaded urltrans table the dispatcher matches
// keywords against.
func (c *T) Table() *urltrans.Table { return c.table }

// CurrentTags reports the log-context tags applied by With so far.
func (c *T) CurrentTags() []string { return c.tags }

// With returns a copy of the context whose logger is tagged with an
// additional context string (e.g. c.With("smsc").With("cimd2")),
// mirroring the teacher's Context.With.
func (c *T) With(tag string) *T {
	tags := append(append([]string{}, c.tags...), tag)
	return &T{
		tags:       tags,
		log:        c.log.WithContext(tags...),
		config:     c.config,
		queues:     c.queues,
		controller: c.controller,
		table:      c.table,
	}
}

// Close implements §4.O's "Shutdown is the context's Close()": it blocks
// until every registered flow thread has exited (the controller must
// already be in SHUTDOWN; see lifecycle.Controller.Shutdown) and then
// flushes and releases the logger. Callers run this exactly once, after
// triggering shutdown, typically from cmd/bearerbox's main.
func (c *T) Close() {
	c.controller.Wait()
	c.log.Flush()
	c.log.Close()
}
