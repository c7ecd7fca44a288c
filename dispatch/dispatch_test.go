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

package dispatch

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
	"github.com/kannelgw/bearergw/urltrans"
)

type fakeFlowThreads struct {
	mu   sync.Mutex
	done int
}

func (f *fakeFlowThreads) RegisterFlowThread() {}
func (f *fakeFlowThreads) DeregisterFlowThread() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done++
}

func (f *fakeFlowThreads) doneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func newTestTable(t *testing.T, iniText string) *urltrans.Table {
	t.Helper()
	raw, err := ini.Load([]byte(iniText))
	require.NoError(t, err)
	table, err := urltrans.Compile(raw)
	require.NoError(t, err)
	return table
}

// TestEchoScenario covers §8 scenario S1 end to end through the
// dispatcher rather than just urltrans.Expand in isolation.
func TestEchoScenario(t *testing.T) {
	table := newTestTable(t, `
[sms-service]
keyword = echo
type = TEXT
text = you said %s %s
max-messages = 1
`)
	incoming := queue.New("incoming_sms", 10)
	outgoing := queue.New("outgoing_sms", 10)
	incoming.AddProducer()

	d := New(gwlog.NewTestLogger(), table, incoming, outgoing, Options{Workers: 1})
	ft := &fakeFlowThreads{}
	d.Start(ft)

	outgoing.AddProducer()
	require.NoError(t, incoming.Produce(message.NewSMS(message.SMS{
		Sender: "111", Receiver: "222", Type: message.SMSMO, MsgData: []byte("echo hi there"),
	})))

	reply, err := outgoing.Consume()
	require.NoError(t, err)
	assert.Equal(t, "222", reply.SMS.Sender)
	assert.Equal(t, "111", reply.SMS.Receiver)
	assert.Equal(t, "you said hi there", string(reply.SMS.MsgData))

	incoming.RemoveProducer()
	d.Shutdown()
	outgoing.RemoveProducer()
}

func TestUnknownKeywordRepliesRequestFailed(t *testing.T) {
	table := newTestTable(t, `
[sms-service]
keyword = echo
type = TEXT
text = ok
`)
	incoming := queue.New("incoming_sms", 10)
	outgoing := queue.New("outgoing_sms", 10)
	incoming.AddProducer()
	outgoing.AddProducer()

	d := New(gwlog.NewTestLogger(), table, incoming, outgoing, Options{Workers: 1})
	d.Start(&fakeFlowThreads{})

	require.NoError(t, incoming.Produce(message.NewSMS(message.SMS{
		Sender: "1", Receiver: "2", Type: message.SMSMO, MsgData: []byte("bogus"),
	})))

	reply, err := outgoing.Consume()
	require.NoError(t, err)
	assert.Equal(t, replyRequestFailed, string(reply.SMS.MsgData))

	incoming.RemoveProducer()
	outgoing.RemoveProducer()
}

// TestSendSMSTypeNeverMatchedByFind covers §4.H step 2's exclusion of
// SENDSMS-type entries from inbound keyword matching; the reply path
// for the "dispatcher received SENDSMS for inbound" branch therefore
// only fires when a SENDSMS entry's username happens to also be a
// configured sms-service keyword, which step 6 rejects.
func TestSendSMSTypeNeverMatchedByFind(t *testing.T) {
	table := newTestTable(t, `
[sendsms-user]
username = alice
password = secret
`)
	assert.Nil(t, table.Find("alice", 0, ""))
}

func TestFakedSenderOverridesSwap(t *testing.T) {
	table := newTestTable(t, `
[sms-service]
keyword = echo
type = TEXT
text = ok
faked-sender = 9999
`)
	incoming := queue.New("incoming_sms", 10)
	outgoing := queue.New("outgoing_sms", 10)
	incoming.AddProducer()
	outgoing.AddProducer()

	d := New(gwlog.NewTestLogger(), table, incoming, outgoing, Options{Workers: 1})
	d.Start(&fakeFlowThreads{})

	require.NoError(t, incoming.Produce(message.NewSMS(message.SMS{
		Sender: "111", Receiver: "222", Type: message.SMSMO, MsgData: []byte("echo"),
	})))

	reply, err := outgoing.Consume()
	require.NoError(t, err)
	assert.Equal(t, "9999", reply.SMS.Sender)

	incoming.RemoveProducer()
	outgoing.RemoveProducer()
}

func TestURLFetchHTMLStrippedAndRepliesThroughPump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>...X<p>hello</p>Y...</html>"))
	}))
	defer srv.Close()

	table := newTestTable(t, `
[sms-service]
keyword = go
type = URL
get-url = `+srv.URL+`/?q=%s
prefix = X
suffix = Y
`)
	incoming := queue.New("incoming_sms", 10)
	outgoing := queue.New("outgoing_sms", 10)
	incoming.AddProducer()
	outgoing.AddProducer()

	d := New(gwlog.NewTestLogger(), table, incoming, outgoing, Options{Workers: 1})
	d.Start(&fakeFlowThreads{})

	require.NoError(t, incoming.Produce(message.NewSMS(message.SMS{
		Sender: "1", Receiver: "2", Type: message.SMSMO, MsgData: []byte("go hi"),
	})))

	reply, err := outgoing.Consume()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(reply.SMS.MsgData))

	incoming.RemoveProducer()
	outgoing.RemoveProducer()
}

func TestURLFetchErrorRepliesFetchFailed(t *testing.T) {
	table := newTestTable(t, `
[sms-service]
keyword = go
type = URL
get-url = http://127.0.0.1:1/%s
`)
	incoming := queue.New("incoming_sms", 10)
	outgoing := queue.New("outgoing_sms", 10)
	incoming.AddProducer()
	outgoing.AddProducer()

	d := New(gwlog.NewTestLogger(), table, incoming, outgoing, Options{Workers: 1, HTTPTimeout: 500 * time.Millisecond})
	d.Start(&fakeFlowThreads{})

	require.NoError(t, incoming.Produce(message.NewSMS(message.SMS{
		Sender: "1", Receiver: "2", Type: message.SMSMO, MsgData: []byte("go x"),
	})))

	reply, err := outgoing.Consume()
	require.NoError(t, err)
	assert.Equal(t, replyFetchFailed, string(reply.SMS.MsgData))

	incoming.RemoveProducer()
	outgoing.RemoveProducer()
}

func TestStripPrefixSuffixScenarioS5(t *testing.T) {
	got := stripPrefixSuffix("<html>...X<p>hello</p>Y...</html>", "X", "Y")
	assert.Equal(t, "<p>hello</p>", got)
}

func TestHTMLToSMSStripsTags(t *testing.T) {
	assert.Equal(t, "hello", htmlToSMS("<p>hello</p>"))
}
