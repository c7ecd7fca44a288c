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

package boxc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

// dialAndIdentify connects to ln's address and sends the admin(identify)
// handshake frame, returning the client-side net.Conn for further use.
func dialAndIdentify(t *testing.T, addr string, boxcID string) net.Conn {
	t.Helper()
	nc, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(nc, message.NewAdmin(message.Admin{Command: message.AdminIdentify, BoxcID: boxcID})))
	return nc
}

func TestManagerHandshakeBindsBoxcID(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	incoming := queue.New("incoming_sms", 100)
	incoming.AddProducer()
	defer incoming.RemoveProducer()

	m := New(gwlog.NewTestLogger(), incoming)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Serve(ctx, ln)

	client := dialAndIdentify(t, ln.Addr().String(), "smsbox-1")
	defer client.Close()

	assert.Eventually(t, func() bool { return m.Connected() == 1 }, time.Second, 10*time.Millisecond)
}

func TestManagerRoutesToPreferredBoxcID(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	incoming := queue.New("incoming_sms", 100)
	incoming.AddProducer()
	defer incoming.RemoveProducer()

	m := New(gwlog.NewTestLogger(), incoming)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Serve(ctx, ln)

	a := dialAndIdentify(t, ln.Addr().String(), "a")
	defer a.Close()
	b := dialAndIdentify(t, ln.Addr().String(), "b")
	defer b.Close()

	assert.Eventually(t, func() bool { return m.Connected() == 2 }, time.Second, 10*time.Millisecond)

	msg := message.NewSMS(message.SMS{Sender: "1", Receiver: "2"})
	ok := m.Route(msg, "b")
	require.True(t, ok)

	got, err := ReadFrame(b)
	require.NoError(t, err)
	assert.Equal(t, message.KindSMS, got.Kind)
}

func TestManagerRoutesRoundRobinWithoutPreference(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	incoming := queue.New("incoming_sms", 100)
	incoming.AddProducer()
	defer incoming.RemoveProducer()

	m := New(gwlog.NewTestLogger(), incoming)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Serve(ctx, ln)

	a := dialAndIdentify(t, ln.Addr().String(), "a")
	defer a.Close()
	b := dialAndIdentify(t, ln.Addr().String(), "b")
	defer b.Close()

	assert.Eventually(t, func() bool { return m.Connected() == 2 }, time.Second, 10*time.Millisecond)

	require.True(t, m.Route(message.NewSMS(message.SMS{Sender: "1", Receiver: "2"}), ""))
	require.True(t, m.Route(message.NewSMS(message.SMS{Sender: "1", Receiver: "2"}), ""))

	results := make(chan error, 2)
	go func() { _, err := ReadFrame(a); results <- err }()
	go func() { _, err := ReadFrame(b); results <- err }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for round-robin delivery to both boxes")
		}
	}
}

func TestManagerRequeuesPendingOnDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	incoming := queue.New("incoming_sms", 100)
	incoming.AddProducer()
	defer incoming.RemoveProducer()

	m := New(gwlog.NewTestLogger(), incoming)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Serve(ctx, ln)

	client := dialAndIdentify(t, ln.Addr().String(), "smsbox-1")
	assert.Eventually(t, func() bool { return m.Connected() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, WriteFrame(client, message.NewSMS(message.SMS{Sender: "1", Receiver: "2", MsgData: []byte("hi")})))

	got, err := incoming.Consume()
	require.NoError(t, err)
	assert.Equal(t, "1", got.SMS.Sender)

	client.Close()
	assert.Eventually(t, func() bool { return m.Connected() == 0 }, time.Second, 10*time.Millisecond)
}
