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

package controlbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/lifecycle"
	"github.com/kannelgw/bearergw/queue"
)

type fakeDriver struct{}

func (fakeDriver) Suspend() error { return nil }
func (fakeDriver) Resume() error  { return nil }
func (fakeDriver) Shutdown() error { return nil }

type fakeUDP struct{}

func (fakeUDP) Shutdown() error { return nil }

func TestPublishSubscribeRoundTrip(t *testing.T) {
	addr := "inproc://test-controlbus-roundtrip"
	log := gwlog.NewTestLogger()

	pub, err := NewPublisher(log, addr)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := NewSubscriber(log, addr)
	require.NoError(t, err)
	defer sub.Close()

	// Give the dial a moment to complete before the first publish; the
	// bus protocol drops sends to peers that have not finished
	// connecting yet.
	time.Sleep(20 * time.Millisecond)

	want := Transition{State: lifecycle.Suspended, Previous: lifecycle.Running, At: time.Now()}
	require.NoError(t, pub.Publish(want))

	got, err := sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.Previous, got.Previous)
}

type reactorSpy struct {
	mu               sync.Mutex
	suspended, resumed int
}

func (r *reactorSpy) Suspend() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suspended++
	return nil
}

func (r *reactorSpy) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed++
	return nil
}

func (r *reactorSpy) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suspended, r.resumed
}

func TestWatchDispatchesSuspendAndResume(t *testing.T) {
	addr := "inproc://test-controlbus-watch"
	log := gwlog.NewTestLogger()

	pub, err := NewPublisher(log, addr)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := NewSubscriber(log, addr)
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(20 * time.Millisecond)

	r := &reactorSpy{}
	Watch(sub, r)

	require.NoError(t, pub.Publish(Transition{State: lifecycle.Isolated, Previous: lifecycle.Running}))
	require.NoError(t, pub.Publish(Transition{State: lifecycle.Running, Previous: lifecycle.Isolated}))

	assert.Eventually(t, func() bool {
		s, res := r.counts()
		return s == 1 && res == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublishHookWiresLifecycleController(t *testing.T) {
	addr := "inproc://test-controlbus-hook"
	log := gwlog.NewTestLogger()

	pub, err := NewPublisher(log, addr)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := NewSubscriber(log, addr)
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(20 * time.Millisecond)

	r := &reactorSpy{}
	Watch(sub, r)

	suspended := queue.NewGate()
	isolated := queue.NewGate()
	c := lifecycle.New(log, suspended, isolated, fakeDriver{}, fakeUDP{}, lifecycle.WithTransitionHook(PublishHook(pub)))

	require.NoError(t, c.Suspend())

	assert.Eventually(t, func() bool {
		s, _ := r.counts()
		return s == 1
	}, time.Second, 10*time.Millisecond)
}
