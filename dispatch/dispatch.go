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

// Package dispatch implements the service dispatcher (§4.H): it
// matches an inbound MO SMS against the urltrans table, expands the
// matched pattern, and either replies immediately (TEXT/FILE) or
// starts an asynchronous HTTP fetch (URL) whose eventual response is
// turned into a reply by the single reply pump.
package dispatch

import (
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"github.com/twinj/uuid"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
	"github.com/kannelgw/bearergw/smssplit"
	"github.com/kannelgw/bearergw/urltrans"
)

// DefaultWorkers is §5's "one dispatcher pool — sized by
// configuration, default 20".
const DefaultWorkers = 20

// DefaultHTTPTimeout is §5's per-request HTTP client timeout default.
const DefaultHTTPTimeout = 30 * time.Second

const replyRequestFailed = "Request failed"
const replyFetchFailed = "Could not fetch content, sorry."
const replySendSMSRejected = "Got URL translation type SENDSMS for incoming message."
const replyUnrepresentable = "Result could not be represented as an SMS message."

// Options configures a Dispatcher.
type Options struct {
	Workers      int
	HTTPTimeout  time.Duration
	GlobalSender string
	MaxOctets    int
}

type flowThreads interface {
	RegisterFlowThread()
	DeregisterFlowThread()
}

// pendingRequest is one outstanding HTTP fetch, keyed by its request
// id in Dispatcher.pending (§9: "pending-request table keyed by HTTP
// request id").
type pendingRequest struct {
	original message.SMS
	entry    *urltrans.Entry
}

// httpResult is what a fetch goroutine hands to the single reply pump.
// err is set when the GET failed (then nothing else is) or when reading
// the body failed (then statusCode and contentType are also set); the
// body is already read and resp.Body closed by the fetch goroutine,
// since the pump doesn't need the live connection.
type httpResult struct {
	reqID       string
	statusCode  int
	contentType string
	body        []byte
	err         error
}

// Dispatcher is the §4.H service dispatcher.
type Dispatcher struct {
	log      gwlog.T
	table    *urltrans.Table
	incoming *queue.Queue
	outgoing *queue.Queue
	client   *http.Client
	opt      Options

	mu      sync.Mutex
	pending map[string]pendingRequest

	replies chan httpResult
}

// New builds an unstarted Dispatcher.
func New(log gwlog.T, table *urltrans.Table, incoming, outgoing *queue.Queue, opt Options) *Dispatcher {
	if opt.Workers <= 0 {
		opt.Workers = DefaultWorkers
	}
	if opt.HTTPTimeout <= 0 {
		opt.HTTPTimeout = DefaultHTTPTimeout
	}

	transport := &http.Transport{}
	// service URL fetches may hit an HTTP/2 origin; configuring http2
	// support on the transport (rather than relying on a fresh
	// http.DefaultTransport) lets the dispatcher's client negotiate it.
	_ = http2.ConfigureTransport(transport)

	return &Dispatcher{
		log:      log,
		table:    table,
		incoming: incoming,
		outgoing: outgoing,
		client:   &http.Client{Timeout: opt.HTTPTimeout, Transport: transport},
		opt:      opt,
		pending:  make(map[string]pendingRequest),
		replies:  make(chan httpResult, 64),
	}
}

// Start launches the dispatcher's worker pool draining incoming_sms
// and the single reply pump draining HTTP completions, registering
// each as a flow thread.
func (d *Dispatcher) Start(ft flowThreads) {
	d.incoming.AddProducer() // the pool only consumes incoming_sms; AddProducer here marks dispatch as a flow-thread owner below
	for i := 0; i < d.opt.Workers; i++ {
		ft.RegisterFlowThread()
		go func() {
			defer ft.DeregisterFlowThread()
			d.workerLoop()
		}()
	}

	ft.RegisterFlowThread()
	go func() {
		defer ft.DeregisterFlowThread()
		d.replyPump()
	}()
}

// Shutdown removes the dispatcher's hold on incoming_sms so the
// workers drain to EndOfStream, then closes the reply channel once no
// fetch can still be writing to it. Callers must not call Shutdown
// concurrently with Start.
func (d *Dispatcher) Shutdown() {
	d.incoming.RemoveProducer()
}

func (d *Dispatcher) workerLoop() {
	for {
		msg, err := d.incoming.Consume()
		if err != nil {
			return // queue.EndOfStream
		}
		if msg.Kind != message.KindSMS || msg.SMS.Type != message.SMSMO {
			continue
		}
		d.handleInbound(*msg.SMS)
	}
}

// handleInbound implements §4.H steps 1-6 for one inbound MO SMS.
func (d *Dispatcher) handleInbound(sms message.SMS) {
	words := strings.Fields(string(sms.MsgData))
	if len(words) == 0 {
		d.reply(sms, nil, replyRequestFailed)
		return
	}
	keyword := words[0]
	args := words[1:]

	entry := d.table.Find(keyword, len(args), sms.SMSCID)
	if entry == nil {
		d.reply(sms, nil, replyRequestFailed)
		return
	}
	if entry.Type == urltrans.TypeSendSMS {
		d.reply(sms, entry, replySendSMSRejected)
		return
	}

	expanded, err := entry.Expand(urltrans.ExpandArgs{
		Keyword: keyword, Args: args, Receiver: sms.Receiver, Sender: sms.Sender, Time: sms.Time,
	})
	if err != nil {
		d.log.Warnf("dispatch: pattern expansion failed for keyword %q: %v", keyword, err)
		d.reply(sms, entry, replyRequestFailed)
		return
	}

	switch entry.Type {
	case urltrans.TypeText:
		d.reply(sms, entry, expanded)
	case urltrans.TypeFile:
		body, err := os.ReadFile(expanded)
		if err != nil {
			d.log.Warnf("dispatch: could not read file %q for keyword %q: %v", expanded, keyword, err)
			d.reply(sms, entry, replyFetchFailed)
			return
		}
		d.reply(sms, entry, string(body))
	case urltrans.TypeURL:
		d.startFetch(sms, entry, expanded)
	}
}

// startFetch registers the pending request and launches its own
// goroutine to perform the blocking HTTP GET, handing the outcome to
// the single reply pump over d.replies (§4.H step 6/7).
func (d *Dispatcher) startFetch(sms message.SMS, entry *urltrans.Entry, url string) {
	reqID := uuid.NewV4().String()

	d.mu.Lock()
	d.pending[reqID] = pendingRequest{original: sms, entry: entry}
	d.mu.Unlock()

	go func() {
		resp, err := d.client.Get(url)
		if err != nil {
			d.replies <- httpResult{reqID: reqID, err: err}
			return
		}
		defer resp.Body.Close()
		body, readErr := io.ReadAll(resp.Body)
		d.replies <- httpResult{
			reqID:       reqID,
			statusCode:  resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
			body:        body,
			err:         readErr,
		}
	}()
}

// replyPump is the single thread that owns d.pending (§9), turning
// each HTTP completion into a reply per §4.H step 7.
func (d *Dispatcher) replyPump() {
	for res := range d.replies {
		d.mu.Lock()
		pr, ok := d.pending[res.reqID]
		delete(d.pending, res.reqID)
		d.mu.Unlock()
		if !ok {
			continue // reply for a request we no longer track (e.g. post-shutdown)
		}

		body := d.renderHTTPReply(res, pr.entry)
		d.reply(pr.original, pr.entry, body)
	}
}

// renderHTTPReply implements §4.H step 7's content-type dispatch.
func (d *Dispatcher) renderHTTPReply(res httpResult, entry *urltrans.Entry) string {
	if res.err != nil {
		return replyFetchFailed
	}
	if res.statusCode != http.StatusOK {
		return replyFetchFailed
	}

	ct := res.contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))

	if entry.AssumePlainText {
		ct = "text/plain"
	}

	switch ct {
	case "text/html", "text/vnd.wap.wml":
		stripped := stripPrefixSuffix(string(res.body), entry.Prefix, entry.Suffix)
		return strings.TrimSpace(htmlToSMS(stripped))
	case "text/plain":
		return strings.TrimSpace(string(res.body))
	default:
		return replyUnrepresentable
	}
}

// reply implements §4.H step 5-8: swap sender/receiver, apply
// faked_sender/global_sender precedence, split and enqueue.
func (d *Dispatcher) reply(original message.SMS, entry *urltrans.Entry, body string) {
	out := message.SMS{
		Sender:   original.Receiver,
		Receiver: original.Sender,
		Type:     message.SMSMTReply,
		MsgData:  []byte(body),
		Flag8Bit: original.Flag8Bit,
		Account:  original.Account,
		Time:     time.Now().UTC(),
	}

	if entry != nil && entry.FakedSender != "" {
		out.Sender = entry.FakedSender
	} else if d.opt.GlobalSender != "" {
		out.Sender = d.opt.GlobalSender
	}

	opt := smssplit.Options{MaxOctets: d.opt.MaxOctets}
	if entry != nil {
		out.SMSCID = entry.ForcedSMSC
		if out.SMSCID == "" {
			out.SMSCID = entry.DefaultSMSC
		}
		opt.Header = entry.Header
		opt.Footer = entry.Footer
		opt.NonlastSuffix = entry.SplitSuffix
		opt.SplitChars = entry.SplitChars
		opt.Concatenation = entry.Concatenation
		opt.MaxMessages = entry.MaxMessages
		opt.OmitEmpty = entry.OmitEmpty
	}

	for _, part := range smssplit.Split(out, opt) {
		if err := d.outgoing.Produce(message.NewSMS(part)); err != nil {
			d.log.Warnf("dispatch: outgoing_sms closed, dropping reply part to %s", part.Receiver)
			return
		}
	}
}
