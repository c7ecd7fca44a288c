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

package dispatch

import (
	"strings"

	"golang.org/x/net/html"
)

// stripPrefixSuffix removes the first occurrence of prefix, then the
// first occurrence of suffix found after it, from body (§4.H step 7 /
// §8 scenario S5). Either may be empty, in which case that cut is
// skipped.
func stripPrefixSuffix(body, prefix, suffix string) string {
	start := 0
	if prefix != "" {
		if i := strings.Index(body, prefix); i >= 0 {
			start = i + len(prefix)
		}
	}
	rest := body[start:]
	if suffix != "" {
		if i := strings.Index(rest, suffix); i >= 0 {
			rest = rest[:i]
		}
	}
	return rest
}

// htmlToSMS renders an HTML or WML fragment down to its text content
// (§4.H step 7): tags are dropped, their text nodes concatenated, and
// leading/trailing whitespace trimmed; whitespace inside the text is
// kept as is. The tokenizer's first error token (normally end of input)
// ends the walk and returns the text collected so far.
func htmlToSMS(fragment string) string {
	tok := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(tok.Text())
		}
	}
}
