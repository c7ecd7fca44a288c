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
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals starts the single goroutine responsible for the process's
// signal handling (§4.C): SIGINT/SIGTERM initiate shutdown on first
// receipt and force DEAD on any subsequent receipt; SIGHUP reopens the
// log; SIGPIPE is ignored outright so a box disconnecting mid-write
// never takes the process down. `signal.Notify` delivers to exactly this
// one goroutine, which is Go's equivalent of gwthread_shouldhandlesignal
// picking a single thread to own a given signal - the rest of the
// process never races to handle the same delivery twice.
//
// reopen is called with no arguments on SIGHUP; it is the caller's
// responsibility to know which config bytes to re-read.
func WatchSignals(c *Controller, reopen func()) {
	signal.Ignore(syscall.SIGPIPE)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigc {
			switch sig {
			case os.Interrupt, syscall.SIGTERM:
				if c.State() == Shutdown {
					c.log.Warn("new killing signal received, killing nevertheless...")
					c.ForceDead()
					continue
				}
				if err := c.Shutdown(); err != nil {
					// Already DEAD, or the transition lost a race to
					// another caller (e.g. the admin /shutdown
					// endpoint). Either way there is nothing left to
					// log: the original signal_handler has a warning
					// call here that sits after an unconditional
					// return and therefore never fires.
					// TODO: decide whether that dead branch should ever
					// become reachable, or stays dead on purpose.
					continue
				}
			case syscall.SIGHUP:
				c.log.Warn("SIGHUP received, catching and re-opening logs")
				if reopen != nil {
					reopen()
				}
			}
		}
	}()
}
