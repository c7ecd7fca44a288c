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

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kannelgw/bearergw/message"
)

func TestProduceConsumeFIFO(t *testing.T) {
	q := New("incoming_sms", 10)
	q.AddProducer()

	for i := 0; i < 3; i++ {
		assert.NoError(t, q.Produce(message.NewSMS(message.SMS{Sender: "1"})))
	}
	assert.EqualValues(t, 3, q.Length())

	for i := 0; i < 3; i++ {
		msg, err := q.Consume()
		assert.NoError(t, err)
		assert.NotNil(t, msg)
	}
}

func TestProducedCountsAcceptedMessagesOnly(t *testing.T) {
	q := New("incoming_sms", 2)
	q.AddProducer()

	assert.NoError(t, q.Produce(message.NewSMS(message.SMS{})))
	assert.NoError(t, q.Produce(message.NewSMS(message.SMS{})))
	assert.ErrorIs(t, q.Produce(message.NewSMS(message.SMS{})), ErrOverflow)

	assert.EqualValues(t, 2, q.Produced())

	_, err := q.Consume()
	assert.NoError(t, err)
	assert.EqualValues(t, 2, q.Produced(), "Produced is cumulative, not a live length")
}

func TestOverflow(t *testing.T) {
	q := New("incoming_sms", 2)
	q.AddProducer()

	assert.NoError(t, q.Produce(message.NewSMS(message.SMS{})))
	assert.NoError(t, q.Produce(message.NewSMS(message.SMS{})))
	err := q.Produce(message.NewSMS(message.SMS{}))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.EqualValues(t, 1, q.OverflowCount())
}

// TestEndOfStreamWakesAllBlockedConsumers covers §8 scenario (S6): two
// blocked consumers both observe EndOfStream exactly once when the last
// producer is removed.
func TestEndOfStreamWakesAllBlockedConsumers(t *testing.T) {
	q := New("incoming_sms", 10)
	q.AddProducer()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, err := q.Consume()
			results <- err
		}()
	}

	// give both goroutines a chance to block in Consume.
	time.Sleep(20 * time.Millisecond)
	q.RemoveProducer()

	wg.Wait()
	close(results)
	for err := range results {
		assert.ErrorIs(t, err, EndOfStream)
	}
}

// TestRemoveProducerDrainsBufferedMessagesBeforeEndOfStream covers §8
// property 5's "WITH THE QUEUE EMPTY" clause: messages still buffered
// when the last producer leaves must still be delivered by Consume, not
// lost to an immediate dispose.
func TestRemoveProducerDrainsBufferedMessagesBeforeEndOfStream(t *testing.T) {
	q := New("incoming_sms", 10)
	q.AddProducer()

	for i := 0; i < 3; i++ {
		assert.NoError(t, q.Produce(message.NewSMS(message.SMS{Sender: "1"})))
	}

	// The only producer leaves while 3 messages are still buffered.
	q.RemoveProducer()

	for i := 0; i < 3; i++ {
		msg, err := q.Consume()
		assert.NoError(t, err)
		assert.NotNil(t, msg)
	}

	// Now that the queue has drained, further Consume calls see
	// EndOfStream instead of blocking forever.
	_, err := q.Consume()
	assert.ErrorIs(t, err, EndOfStream)
}

func TestProducerCountMonotonic(t *testing.T) {
	q := New("outgoing_sms", 10)
	q.AddProducer()
	q.AddProducer()
	assert.EqualValues(t, 2, q.ProducerCount())
	q.RemoveProducer()
	assert.EqualValues(t, 1, q.ProducerCount())
}

func TestGateBlocksAndReleasesAll(t *testing.T) {
	g := NewGate()
	g.Close()
	assert.False(t, g.IsOpen())

	var wg sync.WaitGroup
	unblocked := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.WaitOpen()
			unblocked <- struct{}{}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	select {
	case <-unblocked:
		t.Fatal("waiter unblocked while gate closed")
	default:
	}

	g.Open()
	wg.Wait()
	assert.Len(t, unblocked, 3)
}
