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

// Package boxc implements the box connection manager (§4.E): the TCP
// listeners smsbox/wapbox dial into, the length-framed wire protocol
// of §6, the identify handshake, and load-aware outbound routing.
package boxc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kannelgw/bearergw/message"
)

// maxFrameLen guards a corrupt or hostile peer from claiming an
// unbounded length prefix and exhausting memory on read.
const maxFrameLen = 16 << 20

// wireRecord is the tagged key/value record a Message variant is
// serialized to. "variant" names the Kind; every other field is
// populated only when non-zero so the record stays small.
type wireRecord struct {
	Variant string `json:"variant"`

	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	SMSType  int    `json:"sms_type,omitempty"`
	MsgData  []byte `json:"msgdata,omitempty"`
	UDHData  []byte `json:"udhdata,omitempty"`
	Flag8Bit bool   `json:"flag_8bit,omitempty"`
	FlagUDH  bool   `json:"flag_udh,omitempty"`
	SMSCID   string `json:"smsc_id,omitempty"`
	BoxcID   string `json:"boxc_id,omitempty"`
	Service  string `json:"service,omitempty"`
	Account  string `json:"account,omitempty"`
	TimeUnix int64  `json:"time_unix,omitempty"`

	SrcAddr  string `json:"src_addr,omitempty"`
	DstAddr  string `json:"dst_addr,omitempty"`
	SrcPort  int    `json:"src_port,omitempty"`
	DstPort  int    `json:"dst_port,omitempty"`
	UserData []byte `json:"user_data,omitempty"`

	Command int    `json:"command,omitempty"`
	Version string `json:"version,omitempty"`

	RefID  int64 `json:"ref_id,omitempty"`
	Status int   `json:"status,omitempty"`

	Load int32 `json:"load,omitempty"`
}

const (
	variantSMS       = "sms"
	variantWDP       = "wdp"
	variantAdmin     = "admin"
	variantAck       = "ack"
	variantHeartbeat = "heartbeat"
)

// encodeRecord converts a Message to the record the wire carries. ID
// and Origin are not part of the wire format (§6 names only the
// variant's own fields); the receiving side mints a fresh envelope.
func encodeRecord(m *message.Message) (wireRecord, error) {
	switch m.Kind {
	case message.KindSMS:
		s := m.SMS
		return wireRecord{
			Variant: variantSMS, Sender: s.Sender, Receiver: s.Receiver,
			SMSType: int(s.Type), MsgData: s.MsgData, UDHData: s.UDHData,
			Flag8Bit: s.Flag8Bit, FlagUDH: s.FlagUDH, SMSCID: s.SMSCID,
			BoxcID: s.BoxcID, Service: s.Service, Account: s.Account,
			TimeUnix: s.Time.Unix(),
		}, nil
	case message.KindWDP:
		w := m.WDP
		return wireRecord{
			Variant: variantWDP, SrcAddr: w.SrcAddr, DstAddr: w.DstAddr,
			SrcPort: w.SrcPort, DstPort: w.DstPort, UserData: w.UserData,
		}, nil
	case message.KindAdmin:
		a := m.Admin
		return wireRecord{Variant: variantAdmin, Command: int(a.Command), BoxcID: a.BoxcID, Version: a.Version}, nil
	case message.KindAck:
		a := m.Ack
		return wireRecord{Variant: variantAck, RefID: a.RefID, Status: int(a.Status)}, nil
	case message.KindHeartbeat:
		return wireRecord{Variant: variantHeartbeat, Load: m.Heartbeat.Load}, nil
	default:
		return wireRecord{}, fmt.Errorf("boxc: unknown message kind %v", m.Kind)
	}
}

// decodeRecord is encodeRecord's inverse. An unrecognized variant is
// the one decode error the caller must treat as connection-fatal
// (§6: "unknown variants cause connection reset"); unknown fields
// inside a known variant are simply absent from wireRecord and so are
// silently ignored by json.Unmarshal already.
func decodeRecord(r wireRecord) (*message.Message, error) {
	switch r.Variant {
	case variantSMS:
		return message.NewSMS(message.SMS{
			Sender: r.Sender, Receiver: r.Receiver, Type: message.SMSType(r.SMSType),
			MsgData: r.MsgData, UDHData: r.UDHData, Flag8Bit: r.Flag8Bit, FlagUDH: r.FlagUDH,
			SMSCID: r.SMSCID, BoxcID: r.BoxcID, Service: r.Service, Account: r.Account,
		}), nil
	case variantWDP:
		return message.NewWDP(message.WDP{
			SrcAddr: r.SrcAddr, DstAddr: r.DstAddr, SrcPort: r.SrcPort, DstPort: r.DstPort,
			UserData: r.UserData,
		}), nil
	case variantAdmin:
		return message.NewAdmin(message.Admin{Command: message.AdminCommand(r.Command), BoxcID: r.BoxcID, Version: r.Version}), nil
	case variantAck:
		return message.NewAck(r.RefID, message.AckStatus(r.Status)), nil
	case variantHeartbeat:
		return message.NewHeartbeat(r.Load), nil
	default:
		return nil, fmt.Errorf("boxc: unknown wire variant %q", r.Variant)
	}
}

// WriteFrame serializes msg as one length-prefixed frame and writes it
// to w. Safe to call from a single writer goroutine per connection;
// concurrent calls on the same w are not synchronized here.
func WriteFrame(w io.Writer, msg *message.Message) error {
	rec, err := encodeRecord(msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadFrame blocks until one full frame has arrived on r, or returns
// the read error (including io.EOF on orderly close).
func ReadFrame(r io.Reader) (*message.Message, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("boxc: frame length %d exceeds %d byte limit", n, maxFrameLen)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	var rec wireRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	return decodeRecord(rec)
}
