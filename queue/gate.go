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

package queue

import "sync"

// Gate is the sentinel-queue idiom (§9) made explicit: a barrier with no
// payload. While Close has been called more times than Open, WaitOpen
// blocks; a goroutine that wants to "pause consuming queue X while gate Y
// is closed" calls gate.WaitOpen() before every Consume on X.
//
// Gate shares its truth table with Queue's producer count (closing a
// gate is exactly AddProducer on a payload-less queue, opening it is
// RemoveProducer down to zero) so the two sentinel queues in §4.C
// (`suspended`, `isolated`) can be implemented as a Gate without
// duplicating the producer-count bookkeeping.
type Gate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	closers int
}

// NewGate returns an open gate (closers == 0).
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Close adds one closer. The gate stays closed until every Close has a
// matching Open.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closers++
}

// Open removes one closer. When the last closer is removed every
// goroutine blocked in WaitOpen is woken.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closers > 0 {
		g.closers--
	}
	if g.closers == 0 {
		g.cond.Broadcast()
	}
}

// WaitOpen blocks while the gate is closed. It never spins: it parks on
// a condition variable and is woken exactly once per Open-to-zero
// transition.
func (g *Gate) WaitOpen() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.closers > 0 {
		g.cond.Wait()
	}
}

// IsOpen reports the current state without blocking.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closers == 0
}
