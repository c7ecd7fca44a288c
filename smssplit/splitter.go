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

// Package smssplit implements the outgoing-SMS splitter (§4.I): it
// fragments a reply payload across one or more SMS parts bounded by
// max_octets/max_messages, optionally adding a concatenation UDH.
package smssplit

import (
	"strings"

	"github.com/kannelgw/bearergw/message"
)

// DefaultMaxOctets is the usual single-SMS wire budget (140 octets).
const DefaultMaxOctets = 140

// Options configures one splitter invocation; all fields are optional
// except MaxOctets which defaults to DefaultMaxOctets when zero.
type Options struct {
	Header, Footer   string
	NonlastSuffix    string
	SplitChars       string
	Concatenation    bool
	MaxMessages      int // 0 means unbounded
	MaxOctets        int
	MsgSequence      byte // per-sender 8-bit sequence number, for the UDH ref byte
	OmitEmpty        bool
}

// concatIEI is the UDH information-element identifier for concatenated
// short messages (IEI=0, IEL=3).
const concatIEI = 0x00

// concatUDHLen is the full wire length of a concatenation UDH (length
// byte + IEI + IEL + ref + total + seq = 6 bytes), matching the
// original source's CONCAT_IEL budget-reduction constant.
const concatUDHLen = 6

// Split fragments sms.MsgData into one or more parts per §4.I and
// returns them in emission order, ready to be enqueued into
// outgoing_sms. The input sms is not mutated; each returned part is an
// independent message.SMS value sharing the envelope fields (sender,
// receiver, flags) but with its own MsgData/UDHData.
func Split(sms message.SMS, opt Options) []message.SMS {
	if opt.MaxOctets <= 0 {
		opt.MaxOctets = DefaultMaxOctets
	}

	if len(sms.MsgData) == 0 {
		if opt.OmitEmpty {
			return nil
		}
		sms.MsgData = []byte("<Empty reply from service provider>")
	}

	// willConcat anticipates whether a concatenation UDH will end up on
	// the wire: requested, and the original message doesn't already
	// carry a UDH of its own (a pre-existing UDH always wins per
	// §4.I). The original source's do_split_send applies the
	// concatenation UDH unconditionally within the multi-part path for
	// both 8-bit and 7-bit messages, so the per-part budget must
	// reserve room for it *before* the chunking decision is made -
	// otherwise a message that only overflows once the UDH is
	// accounted for would be split with the wrong chunk boundaries.
	willConcat := opt.Concatenation && !sms.FlagUDH

	udhLen := 0
	if sms.FlagUDH {
		udhLen = len(sms.UDHData)
	} else if willConcat {
		udhLen = concatUDHLen
	}
	budget := partBudget(opt, udhLen, sms.Flag8Bit)

	hfLen := len(opt.Header) + len(opt.Footer)
	budget -= hfLen
	if budget < 1 {
		budget = 1
	}

	if len(sms.MsgData) <= budget || opt.MaxMessages == 1 {
		part := sms
		part.MsgData = wrap(opt, truncate(sms.MsgData, budget))
		parts := []message.SMS{part}
		applyConcatenation(parts, opt, sms)
		return parts
	}

	var chunks [][]byte
	remaining := sms.MsgData
	for len(remaining) > 0 {
		if opt.MaxMessages > 0 && len(chunks) >= opt.MaxMessages {
			break
		}

		isLast := len(remaining) <= effectiveBudget(opt, budget, true)
		chunkBudget := effectiveBudget(opt, budget, isLast)
		if chunkBudget >= len(remaining) {
			chunks = append(chunks, remaining)
			break
		}

		cut := chunkBudget
		if opt.SplitChars != "" {
			if pos := lastIndexAny(remaining[:chunkBudget], opt.SplitChars); pos >= 0 {
				cut = pos + 1
			}
		}
		if cut <= 0 {
			cut = chunkBudget
		}

		chunk := remaining[:cut]
		if !isLast && opt.NonlastSuffix != "" {
			chunk = append(append([]byte(nil), chunk...), []byte(opt.NonlastSuffix)...)
		}
		chunks = append(chunks, chunk)
		remaining = remaining[cut:]
	}

	parts := make([]message.SMS, len(chunks))
	for i, chunk := range chunks {
		part := sms
		part.MsgData = wrap(opt, chunk)
		parts[i] = part
	}
	applyConcatenation(parts, opt, sms)
	return parts
}

// effectiveBudget returns the per-chunk budget, reduced by the
// nonlast-suffix length unless this is the final chunk.
func effectiveBudget(opt Options, budget int, isLast bool) int {
	if isLast {
		return budget
	}
	b := budget - len(opt.NonlastSuffix)
	if b < 1 {
		b = 1
	}
	return b
}

// partBudget computes the per-part payload budget per §4.I: octets for
// 8-bit SMS, characters (via the 8/7 packing ratio) for 7-bit SMS.
func partBudget(opt Options, udhLen int, flag8bit bool) int {
	if flag8bit {
		return opt.MaxOctets - udhLen
	}
	// 7-bit: convert the octet budget to characters, reserving ceil((udh_len*8+6)/7)
	// characters for the UDH (the "shift" padding cost of carrying an 8-bit
	// UDH inside a 7-bit-packed message).
	chars := opt.MaxOctets * 8 / 7
	if udhLen > 0 {
		chars -= ceilDiv(udhLen*8+6, 7)
	}
	return chars
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func truncate(data []byte, budget int) []byte {
	if len(data) <= budget {
		return append([]byte(nil), data...)
	}
	return append([]byte(nil), data[:budget]...)
}

func wrap(opt Options, chunk []byte) []byte {
	out := make([]byte, 0, len(opt.Header)+len(chunk)+len(opt.Footer))
	out = append(out, []byte(opt.Header)...)
	out = append(out, chunk...)
	out = append(out, []byte(opt.Footer)...)
	return out
}

func lastIndexAny(data []byte, chars string) int {
	return strings.LastIndexAny(string(data), chars)
}

// applyConcatenation prepends a concatenation UDH to every part when
// requested and compatible (§4.I): a message that already carries its
// own UDH keeps it as-is (incompatible - concatenation is silently
// dropped rather than erroring), and a single part never needs one.
// Bit-width does not exclude concatenation: do_split_send in the
// original source applies the concatenation UDH unconditionally across
// both the 8-bit and 7-bit multi-part paths.
func applyConcatenation(parts []message.SMS, opt Options, original message.SMS) {
	if !opt.Concatenation {
		return
	}
	total := len(parts)
	incompatible := original.FlagUDH || total <= 1
	if incompatible {
		return
	}
	for i := range parts {
		udh := []byte{
			0, // length byte, filled in below
			concatIEI,
			3, // IEL
			opt.MsgSequence,
			byte(total),
			byte(i + 1),
		}
		udh[0] = byte(len(udh) - 1)
		parts[i].UDHData = udh
		parts[i].FlagUDH = true
	}
}
