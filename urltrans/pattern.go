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

import (
	"fmt"
	"strings"
)

// SegmentKind selects whether a compiled pattern segment is literal text
// or one of the closed set of placeholders from §4.H step 4.
type SegmentKind int

const (
	SegLiteral SegmentKind = iota
	SegKeyword           // %k
	SegArgEncoded        // %s
	SegArgRaw            // %S
	SegRestEncoded       // %r
	SegAllEncoded        // %a
	SegReceiver          // %p
	SegSender            // %P
	SegReceiverNoZero    // %q
	SegSenderNoZero      // %Q
	SegTime              // %t
)

// Segment is one piece of a compiled pattern (§9: "a pre-compiled list of
// segments {Literal(bytes), Placeholder(code)}"). Literal carries the
// text for SegLiteral; the other kinds carry no payload of their own.
type Segment struct {
	Kind    SegmentKind
	Literal string
}

// CompilePattern parses the stringly-typed mini-DSL once at load time so
// the dispatch hot path is a linear emit loop with no parsing in it.
func CompilePattern(pattern string) ([]Segment, error) {
	var segs []Segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Kind: SegLiteral, Literal: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '%' {
			lit.WriteRune(c)
			continue
		}
		if i+1 >= len(runes) {
			return nil, fmt.Errorf("urltrans: pattern %q ends with a bare %%", pattern)
		}
		i++
		code := runes[i]
		switch code {
		case '%':
			lit.WriteRune('%')
			continue
		case 'k':
			flush()
			segs = append(segs, Segment{Kind: SegKeyword})
		case 's':
			flush()
			segs = append(segs, Segment{Kind: SegArgEncoded})
		case 'S':
			flush()
			segs = append(segs, Segment{Kind: SegArgRaw})
		case 'r':
			flush()
			segs = append(segs, Segment{Kind: SegRestEncoded})
		case 'a':
			flush()
			segs = append(segs, Segment{Kind: SegAllEncoded})
		case 'p':
			flush()
			segs = append(segs, Segment{Kind: SegReceiver})
		case 'P':
			flush()
			segs = append(segs, Segment{Kind: SegSender})
		case 'q':
			flush()
			segs = append(segs, Segment{Kind: SegReceiverNoZero})
		case 'Q':
			flush()
			segs = append(segs, Segment{Kind: SegSenderNoZero})
		case 't':
			flush()
			segs = append(segs, Segment{Kind: SegTime})
		default:
			return nil, fmt.Errorf("urltrans: pattern %q has unknown placeholder %%%c", pattern, code)
		}
	}
	flush()
	return segs, nil
}

// countArgs inspects the compiled segments to derive the fixed argument
// count and whether a catch-all (%r or %a) is present, used by the
// keyword-matching rule in §4.H step 2.
func countArgs(segs []Segment) (count int, catchall bool) {
	for _, s := range segs {
		switch s.Kind {
		case SegArgEncoded, SegArgRaw:
			count++
		case SegRestEncoded, SegAllEncoded:
			catchall = true
		}
	}
	return count, catchall
}
