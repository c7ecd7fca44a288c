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

package smssplit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kannelgw/bearergw/message"
)

// TestConcatenationScenario covers §8 scenario S2: a 400-character 7-bit
// reply, max_octets=140, max_messages=4, concatenation requested with
// ref=7, splits into exactly 3 parts, each carrying a concatenation UDH
// (total=3, distinct part numbers 1..3, ref=7), and reassembling the
// payloads in order reproduces the original 400 'A's.
func TestConcatenationScenario(t *testing.T) {
	sms := message.SMS{
		Sender:   "1234",
		Receiver: "5678",
		MsgData:  bytes.Repeat([]byte("A"), 400),
		Flag8Bit: false,
	}
	opt := Options{
		MaxOctets:     140,
		MaxMessages:   4,
		Concatenation: true,
		MsgSequence:   7,
	}

	parts := Split(sms, opt)
	assert.Len(t, parts, 3)

	var rebuilt strings.Builder
	seen := map[byte]bool{}
	for i, p := range parts {
		assert.True(t, p.FlagUDH)
		assert.LessOrEqual(t, len(p.MsgData), 153)
		assert.Len(t, p.UDHData, 6)
		assert.Equal(t, byte(5), p.UDHData[0]) // length byte = len(udh)-1
		assert.Equal(t, byte(0), p.UDHData[1]) // IEI
		assert.Equal(t, byte(3), p.UDHData[2]) // IEL
		assert.Equal(t, byte(7), p.UDHData[3]) // ref
		assert.Equal(t, byte(3), p.UDHData[4]) // total
		assert.Equal(t, byte(i+1), p.UDHData[5])
		seen[p.UDHData[5]] = true
		rebuilt.Write(p.MsgData)
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, strings.Repeat("A", 400), rebuilt.String())
}

// TestSinglePartNeedsNoConcatenation covers the total<=1 branch of §4.I:
// a short message that fits in one part is never given a concatenation
// UDH even when concatenation is requested.
func TestSinglePartNeedsNoConcatenation(t *testing.T) {
	sms := message.SMS{MsgData: []byte("short reply"), Flag8Bit: true}
	parts := Split(sms, Options{MaxOctets: 140, Concatenation: true})
	assert.Len(t, parts, 1)
	assert.False(t, parts[0].FlagUDH)
}

// TestPreexistingUDHDropsConcatenation covers the other §4.I
// incompatibility: a message that already carries its own UDH keeps it,
// and concatenation is silently dropped rather than stacked on top.
func TestPreexistingUDHDropsConcatenation(t *testing.T) {
	sms := message.SMS{
		MsgData:  bytes.Repeat([]byte("B"), 300),
		Flag8Bit: true,
		FlagUDH:  true,
		UDHData:  []byte{2, 0x01, 0x02},
	}
	parts := Split(sms, Options{MaxOctets: 140, Concatenation: true, MsgSequence: 9})
	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.Equal(t, []byte{2, 0x01, 0x02}, p.UDHData)
	}
}

// TestMaxMessagesCaps verifies that a reply longer than
// max_messages*budget is truncated to exactly max_messages parts rather
// than growing without bound (§8 property 3).
func TestMaxMessagesCaps(t *testing.T) {
	sms := message.SMS{MsgData: bytes.Repeat([]byte("C"), 1000), Flag8Bit: true}
	parts := Split(sms, Options{MaxOctets: 140, MaxMessages: 2})
	assert.Len(t, parts, 2)
}

// TestOmitEmptyDropsReply and TestEmptyReplyPlaceholder cover the two
// branches of the empty-reply rule in §4.I.
func TestOmitEmptyDropsReply(t *testing.T) {
	parts := Split(message.SMS{}, Options{OmitEmpty: true})
	assert.Nil(t, parts)
}

func TestEmptyReplyPlaceholder(t *testing.T) {
	parts := Split(message.SMS{}, Options{})
	assert.Len(t, parts, 1)
	assert.Contains(t, string(parts[0].MsgData), "Empty reply")
}

// TestEightBitSingleOctetBudget covers §8 property 4: an 8-bit message
// splits purely on octet count, with no 8/7 packing conversion.
func TestEightBitSingleOctetBudget(t *testing.T) {
	sms := message.SMS{MsgData: bytes.Repeat([]byte{0xFF}, 280), Flag8Bit: true}
	parts := Split(sms, Options{MaxOctets: 140, MaxMessages: 10})
	assert.Len(t, parts, 2)
	assert.Len(t, parts[0].MsgData, 140)
	assert.Len(t, parts[1].MsgData, 140)
}

// TestHeaderFooterReduceBudget checks that header/footer are applied to
// every part and reduce the available payload budget accordingly.
func TestHeaderFooterReduceBudget(t *testing.T) {
	sms := message.SMS{MsgData: bytes.Repeat([]byte("D"), 10), Flag8Bit: true}
	parts := Split(sms, Options{MaxOctets: 140, Header: ">> ", Footer: " <<"})
	assert.Len(t, parts, 1)
	assert.Equal(t, ">> DDDDDDDDDD <<", string(parts[0].MsgData))
}
