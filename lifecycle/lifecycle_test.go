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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/queue"
)

type fakeDriver struct {
	suspended, resumed, shutdown int
}

func (f *fakeDriver) Suspend() error  { f.suspended++; return nil }
func (f *fakeDriver) Resume() error   { f.resumed++; return nil }
func (f *fakeDriver) Shutdown() error { f.shutdown++; return nil }

type fakeUDP struct{ shutdown int }

func (f *fakeUDP) Shutdown() error { f.shutdown++; return nil }

func newTestController() (*Controller, *fakeDriver, *fakeUDP, *queue.Gate, *queue.Gate) {
	suspended := queue.NewGate()
	isolated := queue.NewGate()
	smsc := &fakeDriver{}
	udp := &fakeUDP{}
	c := New(gwlog.NewTestLogger(), suspended, isolated, smsc, udp)
	return c, smsc, udp, suspended, isolated
}

// TestRunningSuspendResume covers §8 scenario S3: RUNNING -> /suspend ->
// SUSPENDED with both sentinel gates closed, then /resume back to
// RUNNING with both reopened.
func TestRunningSuspendResume(t *testing.T) {
	c, smsc, _, suspended, isolated := newTestController()

	assert.NoError(t, c.Suspend())
	assert.Equal(t, Suspended, c.State())
	assert.False(t, suspended.IsOpen())
	assert.False(t, isolated.IsOpen())
	assert.Equal(t, 1, smsc.suspended)

	assert.NoError(t, c.Resume())
	assert.Equal(t, Running, c.State())
	assert.True(t, suspended.IsOpen())
	assert.True(t, isolated.IsOpen())
	assert.Equal(t, 1, smsc.resumed)
}

func TestRunningIsolateResume(t *testing.T) {
	c, smsc, _, _, isolated := newTestController()

	assert.NoError(t, c.Isolate())
	assert.Equal(t, Isolated, c.State())
	assert.False(t, isolated.IsOpen())
	assert.Equal(t, 1, smsc.suspended)

	assert.NoError(t, c.Resume())
	assert.Equal(t, Running, c.State())
	assert.True(t, isolated.IsOpen())
	assert.Equal(t, 1, smsc.resumed)
}

// TestIsolatedToSuspendedToIsolated walks the two edges that only touch
// the `suspended` gate, leaving `isolated` closed throughout.
func TestIsolatedToSuspendedToIsolated(t *testing.T) {
	c, _, _, suspended, isolated := newTestController()

	assert.NoError(t, c.Isolate())
	assert.NoError(t, c.Suspend())
	assert.Equal(t, Suspended, c.State())
	assert.False(t, suspended.IsOpen())
	assert.False(t, isolated.IsOpen())

	assert.NoError(t, c.Isolate())
	assert.Equal(t, Isolated, c.State())
	assert.True(t, suspended.IsOpen())
	assert.False(t, isolated.IsOpen())
}

// TestIllegalTransitionsAreNoOps covers §8 property 1: an operation with
// no edge from the current state fails with ErrNotAllowed and changes
// nothing.
func TestIllegalTransitionsAreNoOps(t *testing.T) {
	c, _, _, _, _ := newTestController()

	// RUNNING has no "resume" edge.
	assert.ErrorIs(t, c.Resume(), ErrNotAllowed)
	assert.Equal(t, Running, c.State())

	// SUSPENDED has no "suspend" edge (already suspended).
	assert.NoError(t, c.Suspend())
	assert.ErrorIs(t, c.Suspend(), ErrNotAllowed)
	assert.Equal(t, Suspended, c.State())
}

// TestShutdownIdempotent covers §4.C's failure semantics: a second
// Shutdown call returns ErrNotAllowed without side effect.
func TestShutdownIdempotent(t *testing.T) {
	c, smsc, udp, suspended, isolated := newTestController()

	assert.NoError(t, c.Suspend())
	assert.NoError(t, c.Shutdown())
	assert.Equal(t, Shutdown, c.State())
	assert.True(t, suspended.IsOpen())
	assert.True(t, isolated.IsOpen())
	assert.Equal(t, 1, smsc.shutdown)
	assert.Equal(t, 1, udp.shutdown)

	assert.ErrorIs(t, c.Shutdown(), ErrNotAllowed)
	assert.Equal(t, 1, smsc.shutdown)
	assert.Equal(t, 1, udp.shutdown)

	assert.ErrorIs(t, c.Suspend(), ErrNotAllowed)
	assert.ErrorIs(t, c.Resume(), ErrNotAllowed)
	assert.ErrorIs(t, c.Isolate(), ErrNotAllowed)
}

// TestShutdownFromRunningRemovesNoHeldProducers ensures Shutdown never
// reopens a gate it never closed (RUNNING holds neither sentinel).
func TestShutdownFromRunningRemovesNoHeldProducers(t *testing.T) {
	c, _, _, suspended, isolated := newTestController()

	assert.NoError(t, c.Shutdown())
	assert.True(t, suspended.IsOpen())
	assert.True(t, isolated.IsOpen())
}

// TestGatesReusableAcrossMultipleSuspendCycles exercises suspend/resume
// more than once: a Gate (unlike the one-shot disposal of a message
// queue) must close and reopen repeatedly, since an operator can
// /suspend and /resume the same running gateway many times over its
// life.
func TestGatesReusableAcrossMultipleSuspendCycles(t *testing.T) {
	c, _, _, suspended, isolated := newTestController()

	for i := 0; i < 3; i++ {
		assert.NoError(t, c.Suspend())
		assert.False(t, suspended.IsOpen())
		assert.False(t, isolated.IsOpen())

		assert.NoError(t, c.Resume())
		assert.True(t, suspended.IsOpen())
		assert.True(t, isolated.IsOpen())
	}
}

// TestWaitReachesDeadAfterFlowThreadsExit covers the
// SHUTDOWN--flow-threads-exit-->DEAD edge.
func TestWaitReachesDeadAfterFlowThreadsExit(t *testing.T) {
	c, _, _, _, _ := newTestController()

	c.RegisterFlowThread()
	assert.NoError(t, c.Shutdown())

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	c.DeregisterFlowThread()
	<-done
	assert.Equal(t, Dead, c.State())
}

// TestForceDeadShortCircuitsWait covers the second-signal "kill
// regardless" path: ForceDead reaches DEAD even with flow threads still
// registered.
func TestForceDeadShortCircuitsWait(t *testing.T) {
	c, _, _, _, _ := newTestController()

	c.RegisterFlowThread() // never deregistered
	assert.NoError(t, c.Shutdown())

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	c.ForceDead()
	<-done
	assert.Equal(t, Dead, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "isolated", Isolated.String())
	assert.Equal(t, "suspended", Suspended.String())
	assert.Equal(t, "shutdown", Shutdown.String())
	assert.Equal(t, "dead", Dead.String())
}
