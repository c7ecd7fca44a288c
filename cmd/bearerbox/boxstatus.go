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
	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/queue"
)

// statusProvider matches adminhttp.StatusProvider without importing it
// just for the type name.
type statusProvider interface {
	Status(format string) (*gabs.Container, error)
}

// mergedBoxStatus composes the SMS-side and WAP-side box connection
// managers behind the single StatusProvider adminhttp.New expects for
// "boxes": bearerbox runs two boxc.Manager instances (one per listen
// port, §4.E/§6) but the admin status document reports them as one
// "boxes" fragment with "sms"/"wap" sub-keys.
type mergedBoxStatus struct {
	sms statusProvider
	wap statusProvider
}

func (m mergedBoxStatus) Status(format string) (*gabs.Container, error) {
	out := gabs.New()
	smsFrag, err := m.sms.Status(format)
	if err != nil {
		return nil, err
	}
	if _, err := out.SetP(smsFrag.Data(), "sms"); err != nil {
		return nil, err
	}
	wapFrag, err := m.wap.Status(format)
	if err != nil {
		return nil, err
	}
	if _, err := out.SetP(wapFrag.Data(), "wap"); err != nil {
		return nil, err
	}
	return out, nil
}

// queueCounter implements adminhttp.Counter by summing queue.Queue's
// cumulative Produced() count across every named queue: a message is
// counted once, at the queue it originates on (incoming_sms/
// incoming_wdp) or is replied on (outgoing_sms/outgoing_wdp), giving the
// admin status surface's messages_per_second field a real numerator
// instead of the bare 1/elapsed reciprocal it previously reported.
type queueCounter struct {
	queues []*queue.Queue
}

func (c queueCounter) Total() int64 {
	var total int64
	for _, q := range c.queues {
		total += q.Produced()
	}
	return total
}
