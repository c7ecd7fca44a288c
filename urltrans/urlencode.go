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

package urltrans

import "strings"

// rfc2396Unreserved is the unreserved byte set from §4.H step 4:
// alphanumerics plus `;/?:@&=+$,-_.!~*'()`.
const rfc2396Unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789;/?:@&=+$,-_.!~*'()"

var unreservedTable [256]bool

func init() {
	for _, b := range []byte(rfc2396Unreserved) {
		unreservedTable[b] = true
	}
}

const hexDigits = "0123456789ABCDEF"

// EncodeForURL encodes s per RFC 2396: unreserved bytes pass through,
// everything else becomes %HH with uppercase hex digits (§8 property 6:
// idempotent on already-safe strings, output is always ASCII).
func EncodeForURL(s string) string {
	var needsEncoding bool
	for i := 0; i < len(s); i++ {
		if !unreservedTable[s[i]] {
			needsEncoding = true
			break
		}
	}
	if !needsEncoding {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreservedTable[c] {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0xf])
	}
	return b.String()
}

// rewriteStar replaces '*' with '~', used by the %S (raw) placeholder.
func rewriteStar(s string) string {
	if !strings.ContainsRune(s, '*') {
		return s
	}
	return strings.ReplaceAll(s, "*", "~")
}

// stripLeadingDoubleZero replaces a single leading "00" with "%2B", used
// by the %q/%Q placeholders (§4.H step 4).
func stripLeadingDoubleZero(s string) string {
	if strings.HasPrefix(s, "00") {
		return "%2B" + s[2:]
	}
	return s
}
