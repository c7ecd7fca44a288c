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

import "bytes"

const (
	otaWBXMLVersion = 0x01 // WBXML version 1.1
	otaPublicID     = 0x01 // public id for an unknown document type
)

// EncodeOTA tokenizes an OTA provisioning/bookmarks document (ota,
// chapter 6) into its WBXML binary form. Unknown tags fall back to
// LITERAL plus a raw inline tag name; unknown attributes are silently
// dropped, matching the source. Text, comment, and processing
// instruction nodes are ignored entirely in the OTA tree - OTA
// documents carry no text content of their own.
func EncodeOTA(xmlDoc []byte) ([]byte, error) {
	root, err := ParseXML(xmlDoc)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	encodeOTANode(&body, root)

	var out bytes.Buffer
	out.WriteByte(otaWBXMLVersion)
	out.WriteByte(otaPublicID)
	appendUintvar(&out, charsetUTF8MIB)
	out.WriteByte(0x00) // string table length: none
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func encodeOTANode(buf *bytes.Buffer, n *Node) {
	if n.Kind != ElementNode {
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

	if tok, known := findToken(otaElements, n.Name); known {
		buf.WriteByte(tok | status)
	} else {
		buf.WriteByte(tokLiteral | status)
		buf.WriteString(n.Name) // raw inline octet string, no STR_I wrapper - matches the source's output_octet_string call here
	}

	if len(n.Attrs) > 0 {
		for _, a := range n.Attrs {
			encodeOTAAttribute(buf, a)
		}
		buf.WriteByte(tokEnd)
	}

	for _, c := range n.Children {
		encodeOTANode(buf, c)
	}
	if addEndTag {
		buf.WriteByte(tokEnd)
	}
}

func encodeOTAAttribute(buf *bytes.Buffer, a Attr) {
	tok, inline, ok := otaAttrToken(a.Name, a.Value)
	if !ok {
		return // unknown attribute: dropped, not erroring the whole document
	}
	buf.WriteByte(tok)
	if inline {
		writeInlineString(buf, a.Value)
	}
}
