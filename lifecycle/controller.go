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

package lifecycle

import (
	"sync"
	"time"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/queue"
)

// TransitionFunc is notified of every successful state change, after the
// mutex has been released. §4.P's control bus publisher is wired in
// through this hook rather than by lifecycle importing controlbus, to
// keep the dependency one-directional.
type TransitionFunc func(previous, next State, at time.Time)

// SMSCDriver is the subset of the §4.D SMSC manager contract the
// controller drives directly: suspend/resume/shutdown. The controller
// takes this as an interface rather than importing package smsc, so
// that package can in turn depend on lifecycle.State for its own status
// reporting without an import cycle.
type SMSCDriver interface {
	Suspend() error
	Resume() error
	Shutdown() error
}

// WDPDriver is the §4.F WDP router's shutdown hook.
type WDPDriver interface {
	Shutdown() error
}

// Controller is the gateway's single authoritative state machine (§4.C).
// Every admin operation and every signal funnels through its methods;
// nothing outside this package ever sets the state directly.
type Controller struct {
	log gwlog.T

	suspended *queue.Gate
	isolated  *queue.Gate
	smsc      SMSCDriver
	udp       WDPDriver

	mu    sync.Mutex
	state State
	// isolatedHeld/suspendedHeld track exactly which sentinel gates this
	// controller itself closed, so Shutdown opens precisely those and
	// only those, regardless of which edge got here.
	isolatedHeld, suspendedHeld bool

	flow sync.WaitGroup
	dead chan struct{}

	notify TransitionFunc
}

// Option configures a new Controller's initial state.
type Option func(*Controller)

// StartSuspended starts the controller already in SUSPENDED, as if
// `/suspend` had been called immediately after RUNNING — the `-S`/
// `--suspended` CLI flag (§6).
func StartSuspended() Option {
	return func(c *Controller) {
		_ = c.Suspend()
	}
}

// StartIsolated starts the controller already in ISOLATED — the `-I`/
// `--isolated` CLI flag (§6).
func StartIsolated() Option {
	return func(c *Controller) {
		_ = c.Isolate()
	}
}

// WithTransitionHook registers fn to be called after every successful
// state change (§4.P control-bus broadcast). fn runs outside the
// controller's mutex and must not block for long.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(c *Controller) {
		c.notify = fn
	}
}

// New builds a Controller in RUNNING, wired to the sentinel gates and
// driver contracts it governs.
func New(log gwlog.T, suspendedGate, isolatedGate *queue.Gate, smsc SMSCDriver, udp WDPDriver, opts ...Option) *Controller {
	c := &Controller{
		log:       log,
		suspended: suspendedGate,
		isolated:  isolatedGate,
		smsc:      smsc,
		udp:       udp,
		state:     Running,
		dead:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Suspend implements the RUNNING/ISOLATED -> SUSPENDED edges.
func (c *Controller) Suspend() error {
	c.mu.Lock()
	prev := c.state
	var err error
	switch c.state {
	case Running:
		c.isolated.Close()
		c.isolatedHeld = true
		c.suspended.Close()
		c.suspendedHeld = true
		c.state = Suspended
		err = c.callSuspend()
	case Isolated:
		c.suspended.Close()
		c.suspendedHeld = true
		c.state = Suspended
	default:
		c.mu.Unlock()
		return ErrNotAllowed
	}
	c.mu.Unlock()
	c.fireTransition(prev, Suspended)
	return err
}

// Isolate implements the RUNNING/SUSPENDED -> ISOLATED edges.
func (c *Controller) Isolate() error {
	c.mu.Lock()
	prev := c.state
	var err error
	switch c.state {
	case Running:
		c.isolated.Close()
		c.isolatedHeld = true
		c.state = Isolated
		err = c.callSuspend()
	case Suspended:
		c.suspended.Open()
		c.suspendedHeld = false
		c.state = Isolated
	default:
		c.mu.Unlock()
		return ErrNotAllowed
	}
	c.mu.Unlock()
	c.fireTransition(prev, Isolated)
	return err
}

// Resume implements the ISOLATED/SUSPENDED -> RUNNING edges.
func (c *Controller) Resume() error {
	c.mu.Lock()
	prev := c.state
	var err error
	switch c.state {
	case Isolated:
		c.isolated.Open()
		c.isolatedHeld = false
		c.state = Running
		err = c.callResume()
	case Suspended:
		c.suspended.Open()
		c.suspendedHeld = false
		c.isolated.Open()
		c.isolatedHeld = false
		c.state = Running
		err = c.callResume()
	default:
		c.mu.Unlock()
		return ErrNotAllowed
	}
	c.mu.Unlock()
	c.fireTransition(prev, Running)
	return err
}

// Shutdown implements the any -> SHUTDOWN edge. It is idempotent: a
// second call while already SHUTDOWN or DEAD returns ErrNotAllowed
// without side effect, matching §4.C's failure semantics.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	prev := c.state
	if c.state == Shutdown || c.state == Dead {
		c.mu.Unlock()
		return ErrNotAllowed
	}

	if c.isolatedHeld {
		c.isolated.Open()
		c.isolatedHeld = false
	}
	if c.suspendedHeld {
		c.suspended.Open()
		c.suspendedHeld = false
	}
	c.state = Shutdown
	c.mu.Unlock()
	c.fireTransition(prev, Shutdown)

	var firstErr error
	if err := c.smsc.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.udp.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ForceDead drives the state straight to DEAD, bypassing the
// flow-threads-exit wait. This is the second-signal "kill regardless"
// path (§4.C): SIGINT/SIGTERM received again while already SHUTDOWN.
func (c *Controller) ForceDead() {
	c.mu.Lock()
	prev := c.state
	if c.state == Dead {
		c.mu.Unlock()
		return
	}
	c.state = Dead
	select {
	case <-c.dead:
	default:
		close(c.dead)
	}
	c.mu.Unlock()
	c.fireTransition(prev, Dead)
}

// RegisterFlowThread marks one more long-lived goroutine (an SMSC
// receiver, a box connection loop, the WDP router, ...) that Wait must
// block on before the controller can reach DEAD.
func (c *Controller) RegisterFlowThread() {
	c.flow.Add(1)
}

// DeregisterFlowThread marks one flow thread as exited.
func (c *Controller) DeregisterFlowThread() {
	c.flow.Done()
}

// Wait blocks until every registered flow thread has exited (or
// ForceDead fires) and then transitions SHUTDOWN -> DEAD, implementing
// the SHUTDOWN --flow-threads-exit--> DEAD edge. If the controller is
// not in SHUTDOWN when the flow threads have exited, the state is left
// unchanged; the wait for flow threads happens either way.
func (c *Controller) Wait() {
	done := make(chan struct{})
	go func() {
		c.flow.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.mu.Lock()
		reached := false
		if c.state == Shutdown {
			c.state = Dead
			reached = true
		}
		c.mu.Unlock()
		if reached {
			c.fireTransition(Shutdown, Dead)
		}
	case <-c.dead:
	}
}

// fireTransition invokes the registered TransitionFunc, if any, outside
// the controller's mutex.
func (c *Controller) fireTransition(prev, next State) {
	if c.notify == nil || prev == next {
		return
	}
	c.notify(prev, next, time.Now())
}

// callSuspend invokes the SMSC driver's Suspend while already holding
// c.mu; it is only ever called from within a method that already holds
// the lock, and the driver call itself must not re-enter the
// controller, so it is safe to run under the lock.
func (c *Controller) callSuspend() error {
	if c.smsc == nil {
		return nil
	}
	return c.smsc.Suspend()
}

func (c *Controller) callResume() error {
	if c.smsc == nil {
		return nil
	}
	return c.smsc.Resume()
}
