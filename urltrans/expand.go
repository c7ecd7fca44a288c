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
	"time"
)

// ExpandArgs carries everything the placeholder table in §4.H step 4
// needs to expand a pattern for one inbound SMS.
type ExpandArgs struct {
	Keyword  string
	Args     []string // positional arguments after the keyword, in order
	Receiver string
	Sender   string
	Time     time.Time
}

// Expand renders e.Segments against args, consuming %s/%S positional
// arguments left to right. Returns a plain error (there is no dedicated
// error type) if the pattern references more %s/%S arguments than were
// supplied.
func (e *Entry) Expand(args ExpandArgs) (string, error) {
	var b strings.Builder
	argi := 0

	next := func() (string, error) {
		if argi >= len(args.Args) {
			return "", fmt.Errorf("urltrans: pattern %q references more arguments than supplied", e.Pattern)
		}
		a := args.Args[argi]
		argi++
		return a, nil
	}

	for _, seg := range e.Segments {
		switch seg.Kind {
		case SegLiteral:
			b.WriteString(seg.Literal)
		case SegKeyword:
			b.WriteString(args.Keyword)
		case SegArgEncoded:
			a, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(EncodeForURL(a))
		case SegArgRaw:
			a, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(rewriteStar(a))
		case SegRestEncoded:
			rest := args.Args[argi:]
			argi = len(args.Args)
			b.WriteString(EncodeForURL(strings.Join(rest, "+")))
		case SegAllEncoded:
			b.WriteString(EncodeForURL(strings.Join(args.Args, "+")))
		case SegReceiver:
			b.WriteString(EncodeForURL(args.Receiver))
		case SegSender:
			b.WriteString(EncodeForURL(args.Sender))
		case SegReceiverNoZero:
			b.WriteString(stripLeadingDoubleZero(EncodeForURL(args.Receiver)))
		case SegSenderNoZero:
			b.WriteString(stripLeadingDoubleZero(EncodeForURL(args.Sender)))
		case SegTime:
			t := args.Time
			if t.IsZero() {
				t = time.Now()
			}
			b.WriteString(t.UTC().Format("2006-01-02+15:04"))
		}
	}
	return b.String(), nil
}
