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

package boxc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kannelgw/bearergw/message"
)

func TestWriteReadFrameRoundTripsSMS(t *testing.T) {
	var buf bytes.Buffer
	orig := message.NewSMS(message.SMS{
		Sender: "123", Receiver: "456", MsgData: []byte("hello"),
		FlagUDH: true, UDHData: []byte{1, 2}, SMSCID: "smsc-a",
	})

	require.NoError(t, WriteFrame(&buf, orig))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)

	assert.Equal(t, orig.SMS.Sender, got.SMS.Sender)
	assert.Equal(t, orig.SMS.Receiver, got.SMS.Receiver)
	assert.Equal(t, orig.SMS.MsgData, got.SMS.MsgData)
	assert.Equal(t, orig.SMS.UDHData, got.SMS.UDHData)
	assert.Equal(t, orig.SMS.SMSCID, got.SMS.SMSCID)
}

func TestWriteReadFrameRoundTripsAdminIdentify(t *testing.T) {
	var buf bytes.Buffer
	orig := message.NewAdmin(message.Admin{Command: message.AdminIdentify, BoxcID: "smsbox-1", Version: "1.3.0"})

	require.NoError(t, WriteFrame(&buf, orig))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)

	assert.Equal(t, message.KindAdmin, got.Kind)
	assert.Equal(t, message.AdminIdentify, got.Admin.Command)
	assert.Equal(t, "smsbox-1", got.Admin.BoxcID)
	assert.Equal(t, "1.3.0", got.Admin.Version)
}

func TestWriteReadFrameRoundTripsHeartbeat(t *testing.T) {
	var buf bytes.Buffer
	orig := message.NewHeartbeat(42)

	require.NoError(t, WriteFrame(&buf, orig))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)

	assert.Equal(t, message.KindHeartbeat, got.Kind)
	assert.EqualValues(t, 42, got.Heartbeat.Load)
}

func TestReadFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	_, err := ReadFrame(&buf)
	assert.Error(t, err)
}

func TestReadFrameRejectsUnknownVariant(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"variant":"bogus"}`)
	var lenPrefix [4]byte
	lenPrefix[3] = byte(len(body))
	buf.Write(lenPrefix[:])
	buf.Write(body)

	_, err := ReadFrame(&buf)
	assert.Error(t, err)
}
