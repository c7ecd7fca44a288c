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

const (
	siWBXMLVersion = 0x02 // WBXML version 1.2
	siPublicID     = 0x05 // SI 1.0 public id
)

// EncodeSI tokenizes a Service Indication push document (si, chapter
// 8.2) into its WBXML binary form. Text content is emitted as inline
// strings; href attributes are tokenized against the longest known URL
// prefix and then against the URL-value table; created/si-expires
// dates are packed as OPAQUE payloads; unknown attributes are dropped.
func EncodeSI(xmlDoc []byte) ([]byte, error) {
	root, err := ParseXML(xmlDoc)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	encodeSINode(&body, root)

	var out bytes.Buffer
	out.WriteByte(siWBXMLVersion)
	out.WriteByte(siPublicID)
	appendUintvar(&out, charsetUTF8MIB)
	out.WriteByte(0x00) // string table length: none
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func encodeSINode(buf *bytes.Buffer, n *Node) {
	if n.Kind == TextNode {
		text := trimmedText(n.Text)
		if text == "" {
			return
		}
		writeInlineString(buf, text)
		return
	}

	status := byte(0)
	if hasContent(n) {
		status |= contentBit
	}
	if len(n.Attrs) > 0 {
		status |= attrBit
	}
	addEndTag := status&contentBit == contentBit

	if tok, known := findToken(siElements, n.Name); known {
		buf.WriteByte(tok | status)
	} else {
		buf.WriteByte(tokLiteral | status)
		buf.WriteString(n.Name)
	}

	if len(n.Attrs) > 0 {
		for _, a := range n.Attrs {
			encodeSIAttribute(buf, a)
		}
		buf.WriteByte(tokEnd)
	}

	for _, c := range n.Children {
		encodeSINode(buf, c)
	}
	if addEndTag {
		buf.WriteByte(tokEnd)
	}
}

func encodeSIAttribute(buf *bytes.Buffer, a Attr) {
	entry, prefix, ok := findSIAttribute(a.Name, a.Value)
	if !ok {
		return // unknown attribute: dropped, matching the source's error path
	}

	switch {
	case isSIAction(entry.Token):
		buf.WriteByte(entry.Token)
	case isSIURL(entry.Token):
		buf.WriteByte(entry.Token)
		writeURLValue(buf, strings.TrimPrefix(a.Value, prefix))
	case isSIDate(entry.Token):
		packed, err := tokenizeDate(a.Value)
		if err != nil {
			return // invalid date: attribute dropped, not fatal
		}
		buf.WriteByte(entry.Token)
		buf.Write(packed)
	default:
		buf.WriteByte(entry.Token)
		writeInlineString(buf, a.Value)
	}
}

// writeURLValue tokenizes the remainder of an href value against the
// URL-value table (si, chapter 9.3.3): the first matching substring
// anywhere in s splits it into an inline prefix, a token, and an
// inline suffix; no match falls back to one inline string for all of s.
func writeURLValue(buf *bytes.Buffer, s string) {
	for _, uv := range siURLValues {
		if idx := strings.Index(s, uv.Name); idx >= 0 {
			writeInlineString(buf, s[:idx])
			buf.WriteByte(uv.Token)
			writeInlineString(buf, s[idx+len(uv.Name):])
			return
		}
	}
	writeInlineString(buf, s)
}
