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

// Package heartbeat implements the per-box heartbeat producer (§4.K):
// a periodic timer thread that samples a caller-supplied load and
// emits a Heartbeat message, clamped against interrupted-sleep storms.
package heartbeat

import (
	"sync"
	"time"

	"github.com/carlescere/scheduler"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
)

// DefaultFreq is §4.K's default heartbeat period.
const DefaultFreq = 30 * time.Second

// Sender is the one-method contract a heartbeat producer publishes
// through; boxc.Conn's outbound queue satisfies it by wrapping
// (*queue.Queue).Produce.
type Sender interface {
	Send(msg *message.Message) error
}

// Producer is one spawned-per-box heartbeat thread.
type Producer struct {
	log  gwlog.T
	freq time.Duration
	load func() int32
	send Sender

	mu       sync.Mutex
	lastSent time.Time
	job      *scheduler.Job
}

// New builds an unstarted Producer. freq <= 0 uses DefaultFreq.
func New(log gwlog.T, freq time.Duration, load func() int32, send Sender) *Producer {
	if freq <= 0 {
		freq = DefaultFreq
	}
	return &Producer{log: log, freq: freq, load: load, send: send}
}

// Start schedules the periodic tick via carlescere/scheduler, the same
// library and Job.Quit stop idiom the teacher's health-check plugin
// uses for its own periodic job.
func (p *Producer) Start() error {
	seconds := int(p.freq / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	job, err := scheduler.Every(seconds).Seconds().Run(p.tick)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.job = job
	p.mu.Unlock()
	return nil
}

// tick sends one heartbeat unless the wall-clock gap since the last
// send is under freq/2 (§4.K's interrupted-sleep-storm guard).
func (p *Producer) tick() {
	now := time.Now()

	p.mu.Lock()
	if !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.freq/2 {
		p.mu.Unlock()
		return
	}
	p.lastSent = now
	p.mu.Unlock()

	if err := p.send.Send(message.NewHeartbeat(p.load())); err != nil {
		p.log.Warnf("heartbeat: send failed: %v", err)
	}
}

// Stop cooperatively halts the scheduled job; safe to call once, and a
// no-op if Start was never called or already failed.
func (p *Producer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job != nil {
		p.job.Quit <- true
		p.job = nil
	}
}
