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

package main

import (
	"errors"
	"testing"

	"github.com/Jeffail/gabs"
	"github.com/stretchr/testify/assert"

	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

type fakeStatusProvider struct {
	frag *gabs.Container
	err  error
}

func (f fakeStatusProvider) Status(format string) (*gabs.Container, error) {
	return f.frag, f.err
}

func statusFragment(t *testing.T, key string, value string) *gabs.Container {
	t.Helper()
	c := gabs.New()
	_, err := c.Set(value, key)
	assert.NoError(t, err)
	return c
}

func TestMergedBoxStatusComposesBothSides(t *testing.T) {
	m := mergedBoxStatus{
		sms: fakeStatusProvider{frag: statusFragment(t, "smsbox-1", "count")},
		wap: fakeStatusProvider{frag: statusFragment(t, "wapbox-1", "count")},
	}

	out, err := m.Status("json")
	assert.NoError(t, err)
	assert.Equal(t, "count", out.Path("sms.smsbox-1").Data())
	assert.Equal(t, "count", out.Path("wap.wapbox-1").Data())
}

func TestMergedBoxStatusPropagatesSMSError(t *testing.T) {
	wantErr := errors.New("boom")
	m := mergedBoxStatus{
		sms: fakeStatusProvider{err: wantErr},
		wap: fakeStatusProvider{frag: gabs.New()},
	}

	_, err := m.Status("json")
	assert.ErrorIs(t, err, wantErr)
}

func TestMergedBoxStatusPropagatesWAPError(t *testing.T) {
	wantErr := errors.New("boom")
	m := mergedBoxStatus{
		sms: fakeStatusProvider{frag: gabs.New()},
		wap: fakeStatusProvider{err: wantErr},
	}

	_, err := m.Status("json")
	assert.ErrorIs(t, err, wantErr)
}

func TestQueueCounterSumsAcrossQueues(t *testing.T) {
	a := queue.New("incoming_sms", 10)
	b := queue.New("outgoing_sms", 10)
	a.AddProducer()
	b.AddProducer()

	assert.NoError(t, a.Produce(message.NewSMS(message.SMS{})))
	assert.NoError(t, a.Produce(message.NewSMS(message.SMS{})))
	assert.NoError(t, b.Produce(message.NewSMS(message.SMS{})))

	c := queueCounter{queues: []*queue.Queue{a, b}}
	assert.EqualValues(t, 3, c.Total())
}

func TestQueueCounterEmpty(t *testing.T) {
	c := queueCounter{}
	assert.EqualValues(t, 0, c.Total())
}
