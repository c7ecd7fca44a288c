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

// Package queue implements the bounded, multi-producer multi-consumer
// queue with producer-count semantics that the rest of bearergw is built
// on (§4.A). It also provides Gate, the sentinel-queue idiom generalized
// into its own type (§9): a queue that never carries messages but whose
// producer count alone gates consumers of other queues.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"

	goq "github.com/Workiva/go-datastructures/queue"

	"github.com/kannelgw/bearergw/message"
)

// ErrOverflow is returned by Produce when the soft bound is exceeded.
var ErrOverflow = errors.New("queue: overflow")

// DefaultSoftBound is the default soft bound on queue length (§4.A).
const DefaultSoftBound = 1000

// EndOfStream is the sentinel returned by Consume once the producer count
// has reached zero with the queue empty.
var EndOfStream = errors.New("queue: end of stream")

// Queue is a bounded FIFO of *message.Message with a producer count. Once
// the producer count drops to zero and the queue has drained, every
// blocked and future Consume call returns EndOfStream.
type Queue struct {
	name      string
	softBound int64

	inner *goq.Queue // backs blocking semantics; Dispose() -> EndOfStream

	mu          sync.Mutex
	producers   int64
	disposed    bool
	overflowCnt int64
	produced    int64 // atomic; cumulative, never decremented
}

// New creates an empty queue with the given soft bound (0 means
// DefaultSoftBound).
func New(name string, softBound int64) *Queue {
	if softBound <= 0 {
		softBound = DefaultSoftBound
	}
	return &Queue{
		name:      name,
		softBound: softBound,
		inner:     goq.New(softBound),
	}
}

// Name returns the queue's label, used in log messages and the admin
// status report.
func (q *Queue) Name() string { return q.name }

// Produce appends msg without blocking. It fails with ErrOverflow if the
// queue's soft bound is exceeded; it never blocks the caller and never
// silently drops a message that was accepted.
func (q *Queue) Produce(msg *message.Message) error {
	q.mu.Lock()
	if q.disposed {
		q.mu.Unlock()
		return EndOfStream
	}
	if q.inner.Len() >= q.softBound {
		q.overflowCnt++
		q.mu.Unlock()
		return ErrOverflow
	}
	q.mu.Unlock()
	if err := q.inner.Put(msg); err != nil {
		return err
	}
	atomic.AddInt64(&q.produced, 1)
	return nil
}

// Consume blocks until a message is available or the producer count has
// reached zero with the queue empty, in which case it returns
// (nil, EndOfStream). It never spins.
func (q *Queue) Consume() (*message.Message, error) {
	items, err := q.inner.Get(1)
	if err != nil {
		// goq.Queue.Get returns queue.ErrDisposed once Dispose has been
		// called; translate to our own sentinel so callers never import
		// the backing library's error type.
		return nil, EndOfStream
	}
	// The last producer may have already left while this message was
	// still buffered; now that it has been handed to a consumer, check
	// whether the queue has fully drained and dispose if so, rather than
	// leaving that to RemoveProducer (which ran with messages still
	// queued and deliberately left them for us to drain).
	q.mu.Lock()
	q.maybeDisposeLocked()
	q.mu.Unlock()
	return items[0].(*message.Message), nil
}

// Length returns the current number of queued messages without blocking.
func (q *Queue) Length() int64 {
	return q.inner.Len()
}

// Produced returns the cumulative count of messages ever successfully
// accepted by Produce, for the admin status surface's throughput
// calculation (§4.Q). Unlike Length, it never decreases.
func (q *Queue) Produced() int64 {
	return atomic.LoadInt64(&q.produced)
}

// OverflowCount returns the number of Produce calls rejected with
// ErrOverflow since creation, for the admin status report.
func (q *Queue) OverflowCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.overflowCnt
}

// ProducerCount returns the current producer count, observationally.
func (q *Queue) ProducerCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.producers
}

// AddProducer increments the producer count. Monotonic: never rejects,
// never drops messages.
func (q *Queue) AddProducer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.producers++
}

// RemoveProducer decrements the producer count. When the count reaches
// zero WITH THE QUEUE EMPTY, every currently- and future-blocked Consume
// call returns EndOfStream exactly once (§8 property 5): the underlying
// blocking queue is disposed, which wakes every waiter. If messages are
// still buffered at that moment, disposal is deferred — Consume disposes
// once the drain it performs empties the queue — so a producer leaving
// never races buffered messages out of existence; Consume always
// delivers every message that was actually accepted by Produce before
// any caller sees EndOfStream.
func (q *Queue) RemoveProducer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.producers > 0 {
		q.producers--
	}
	q.maybeDisposeLocked()
}

// maybeDisposeLocked disposes the underlying queue iff the producer
// count is zero and the queue has fully drained. Must be called with
// q.mu held.
func (q *Queue) maybeDisposeLocked() {
	if q.producers == 0 && !q.disposed && q.inner.Len() == 0 {
		q.disposed = true
		q.inner.Dispose()
	}
}

// Reset clears the disposed/producer state so a queue can be reused (used
// only by tests; bearergw itself never resurrects a queue after
// shutdown).
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.producers = 0
	q.disposed = false
	q.overflowCnt = 0
	atomic.StoreInt64(&q.produced, 0)
	q.inner = goq.New(q.softBound)
}
