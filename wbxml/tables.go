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

package wbxml

import (
	"bytes"
	"strings"
)

// Global WBXML tokens, shared by every code page / document type.
const (
	tokSwitchPage = 0x00
	tokEnd        = 0x01
	tokEntity     = 0x02
	tokStrI       = 0x03
	tokLiteral    = 0x04
	tokOpaque     = 0xC3
	strEnd        = 0x00

	contentBit = 0x40
	attrBit    = 0x80
)

// charsetUTF8MIB is the IANA MIBenum for UTF-8; set_charset in the
// source always rewrites the document's declared charset to "UTF-8"
// before tokenizing, and both compilers do the same right before
// emitting the header regardless of what charset was requested -
// preserved verbatim here rather than honouring the caller's charset.
const charsetUTF8MIB = 106

// appendUintvar appends v as a WBXML multi-byte uintvar: 7 bits per
// byte, continuation bit (0x80) set on every byte but the last.
func appendUintvar(buf *bytes.Buffer, v uint32) {
	var stack [5]byte
	n := 0
	stack[n] = byte(v & 0x7f)
	n++
	v >>= 7
	for v > 0 {
		stack[n] = byte(v&0x7f) | 0x80
		n++
		v >>= 7
	}
	for i := n - 1; i >= 0; i-- {
		buf.WriteByte(stack[i])
	}
}

// writeInlineString appends a global inline string: STR_I, the raw
// bytes, then a NUL terminator.
func writeInlineString(buf *bytes.Buffer, s string) {
	buf.WriteByte(tokStrI)
	buf.WriteString(s)
	buf.WriteByte(strEnd)
}

// twoTable is a plain name->token table (used for element names and
// the SI URL-value table).
type twoTable struct {
	Name  string
	Token byte
}

func findToken(table []twoTable, name string) (byte, bool) {
	for _, e := range table {
		if e.Name == name {
			return e.Token, true
		}
	}
	return 0, false
}

// --- OTA (§4.J, ota, chapter 8) ---

var otaElements = []twoTable{
	{"CHARACTERISTIC-LIST", 0x05},
	{"CHARACTERISTIC", 0x06},
	{"PARM", 0x07},
}

// otaAttrEntry is a (name, value) -> token mapping; value "INLINE"
// marks the fallback entry for an attribute name, meaning "emit the
// token then an inline string for the actual value" rather than a
// fixed enumerated value.
type otaAttrEntry struct {
	Name, Value string
	Token       byte
}

var otaAttributes = []otaAttrEntry{
	{"TYPE", "ADDRESS", 0x06},
	{"TYPE", "URL", 0x07},
	{"TYPE", "MMSURL", 0x7c},
	{"TYPE", "NAME", 0x08},
	{"TYPE", "ID", 0x7d},
	{"TYPE", "BOOKMARK", 0x7f},
	{"NAME", "BEARER", 0x12},
	{"NAME", "PROXY", 0x13},
	{"NAME", "PORT", 0x14},
	{"NAME", "NAME", 0x15},
	{"NAME", "PROXY_TYPE", 0x16},
	{"NAME", "URL", 0x17},
	{"NAME", "PROXY_AUTHNAME", 0x18},
	{"NAME", "PROXY_AUTHSECRET", 0x19},
	{"NAME", "SMS_SMSC_ADDRESS", 0x1a},
	{"NAME", "USSD_SERVICE_CODE", 0x1b},
	{"NAME", "GPRS_ACCESSPOINTNAME", 0x1c},
	{"NAME", "PPP_LOGINTYPE", 0x1d},
	{"NAME", "PROXY_LOGINTYPE", 0x1e},
	{"NAME", "CSD_DIALSTRING", 0x21},
	{"NAME", "CSD_CALLTYPE", 0x28},
	{"NAME", "CSD_CALLSPEED", 0x29},
	{"NAME", "PPP_AUTHTYPE", 0x22},
	{"NAME", "PPP_AUTHNAME", 0x23},
	{"NAME", "PPP_AUTHSECRET", 0x24},
	{"NAME", "ISP_NAME", 0x7e},
	{"NAME", "INLINE", 0x10},
	{"VALUE", "GSM/CSD", 0x45},
	{"VALUE", "GSM/SMS", 0x46},
	{"VALUE", "GSM/USSD", 0x47},
	{"VALUE", "IS-136/CSD", 0x48},
	{"VALUE", "GPRS", 0x49},
	{"VALUE", "9200", 0x60},
	{"VALUE", "9201", 0x61},
	{"VALUE", "9202", 0x62},
	{"VALUE", "9203", 0x63},
	{"VALUE", "AUTOMATIC", 0x64},
	{"VALUE", "MANUAL", 0x65},
	{"VALUE", "AUTO", 0x6a},
	{"VALUE", "9600", 0x6b},
	{"VALUE", "14400", 0x6c},
	{"VALUE", "19200", 0x6d},
	{"VALUE", "28800", 0x6e},
	{"VALUE", "38400", 0x6f},
	{"VALUE", "PAP", 0x70},
	{"VALUE", "CHAP", 0x71},
	{"VALUE", "ANALOGUE", 0x72},
	{"VALUE", "ISDN", 0x73},
	{"VALUE", "43200", 0x74},
	{"VALUE", "57600", 0x75},
	{"VALUE", "MSISDN_NO", 0x76},
	{"VALUE", "IPV4", 0x77},
	{"VALUE", "MS_CHAP", 0x78},
	{"VALUE", "INLINE", 0x11},
}

// otaAttrToken scans otaAttributes for name, returning the first entry
// whose value matches exactly or whose value is the "INLINE" fallback
// (in table order, so specific values always win over a trailing
// INLINE catch-all within the same attribute-name group).
func otaAttrToken(name, value string) (token byte, inline, ok bool) {
	for _, e := range otaAttributes {
		if e.Name != name {
			continue
		}
		if e.Value == value {
			return e.Token, e.Value == "INLINE", true
		}
		if e.Value == "INLINE" {
			return e.Token, true, true
		}
	}
	return 0, false, false
}

// --- SI (§4.J, si, chapter 9.3) ---

var siElements = []twoTable{
	{"si", 0x05},
	{"indication", 0x06},
	{"info", 0x07},
	{"item", 0x08},
}

// siAttrEntry mirrors si_3table_t: Value nil means "match any value for
// this attribute name" (direct pass-through), non-nil means "match by
// prefix" (used by href's longest-known-prefix rule).
type siAttrEntry struct {
	Name  string
	Value *string
	Token byte
}

func sp(s string) *string { return &s }

var siAttributes = []siAttrEntry{
	{"action", sp("signal-none"), 0x05},
	{"action", sp("signal-low"), 0x06},
	{"action", sp("signal-medium"), 0x07},
	{"action", sp("signal-high"), 0x08},
	{"action", sp("delete"), 0x09},
	{"created", nil, 0x0a},
	{"href", sp("https://www."), 0x0f},
	{"href", sp("http://www."), 0x0d},
	{"href", sp("https://"), 0x0e},
	{"href", sp("http://"), 0x0c},
	{"href", nil, 0x0b},
	{"si-expires", nil, 0x10},
	{"si-id", nil, 0x11},
	{"class", nil, 0x12},
}

var siURLValues = []twoTable{
	{".com/", 0x85},
	{".edu/", 0x86},
	{".net/", 0x87},
	{".org/", 0x88},
}

func isSIAction(tok byte) bool { return tok >= 0x05 && tok <= 0x09 }
func isSIURL(tok byte) bool {
	switch tok {
	case 0x0b, 0x0c, 0x0d, 0x0e, 0x0f:
		return true
	}
	return false
}
func isSIDate(tok byte) bool { return tok == 0x0a || tok == 0x10 }

// findSIAttribute scans siAttributes for the first entry matching name
// whose Value is nil (match any) or a prefix of value; it returns the
// matched prefix ("" for a nil-Value entry) alongside the entry.
func findSIAttribute(name, value string) (entry siAttrEntry, prefix string, ok bool) {
	for _, e := range siAttributes {
		if e.Name != name {
			continue
		}
		if e.Value == nil {
			return e, "", true
		}
		if strings.HasPrefix(value, *e.Value) {
			return e, *e.Value, true
		}
	}
	return siAttrEntry{}, "", false
}
