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
	"errors"
	"regexp"
)

var errInvalidOSIDate = errors.New("wbxml: invalid OSI date")

// osiDateRe matches the basic and extended OSI date formats accepted by
// si, chapter 9.2.1.1: CCYYMMDDThhmmssZ, optionally with '-' separating
// date fields and ':' separating time fields.
var osiDateRe = regexp.MustCompile(`^\d{4}-?\d{2}-?\d{2}T\d{2}:?\d{2}:?\d{2}Z$`)

// tokenizeDate packs an OSI date's digits two-per-byte (high nibble
// first) into an OPAQUE payload, dropping trailing all-zero bytes and
// prefixing a length byte - si, chapter 9.2.2.
func tokenizeDate(date string) ([]byte, error) {
	if !osiDateRe.MatchString(date) {
		return nil, errInvalidOSIDate
	}

	var nibbles []byte
	for _, c := range date {
		switch c {
		case 'T', 'Z', '-', ':':
			continue
		default:
			if c < '0' || c > '9' {
				return nil, errInvalidOSIDate
			}
			nibbles = append(nibbles, byte(c-'0'))
		}
	}

	packed := make([]byte, (len(nibbles)+1)/2)
	for j, d := range nibbles {
		if j%2 == 0 {
			packed[j/2] |= d << 4
		} else {
			packed[j/2] |= d
		}
	}
	for len(packed) > 0 && packed[len(packed)-1] == 0 {
		packed = packed[:len(packed)-1]
	}

	out := make([]byte, 0, len(packed)+2)
	out = append(out, tokOpaque, byte(len(packed)))
	out = append(out, packed...)
	return out, nil
}
