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

// Package urltrans implements the configured service-pattern table (§4.G)
// the dispatcher matches inbound SMS keywords against. An Entry is
// immutable once built; the Table is append-only and lookup is O(N) per
// §3.
package urltrans

import (
	"strings"
)

// Type selects what an Entry does once matched.
type Type int

const (
	TypeURL Type = iota
	TypeText
	TypeFile
	TypeSendSMS
)

// Entry is one configured translation. Built once at load time by
// Compile and never mutated afterwards; safe to share across goroutines
// without a lock.
type Entry struct {
	Keyword  string // "default" is the catch-all marker
	Aliases  []string
	Type     Type
	Pattern  string // raw pattern text; compiled into Segments below
	Segments []Segment

	Prefix, Suffix string // stripped from HTML replies, in that order
	FakedSender    string
	MaxMessages    int
	Concatenation  bool
	SplitChars     string
	SplitSuffix    string
	Header, Footer string
	OmitEmpty      bool

	AcceptedSMSC []string
	ForcedSMSC   string
	DefaultSMSC  string

	AllowIP []string
	DenyIP  []string

	// SENDSMS only.
	Username string
	Password string

	// AssumePlainText treats the HTTP reply body as text/plain
	// regardless of its declared Content-Type (Kannel's
	// "assume-plain-text", carried forward per SPEC_FULL §3).
	AssumePlainText bool

	// argCount/hasCatchallArg are derived from Pattern at Compile time
	// and used by the keyword-matching rule in §4.H step 2.
	argCount       int
	hasCatchallArg bool
}

// Args reports the fixed positional-argument count and whether the
// pattern also accepts a trailing catch-all argument (%r/%a present).
func (e *Entry) Args() (count int, catchall bool) {
	return e.argCount, e.hasCatchallArg
}

// MatchesAlias reports whether word (already case-folded by the caller)
// is listed in the entry's semicolon-delimited Aliases.
func (e *Entry) MatchesAlias(word string) bool {
	for _, alias := range e.Aliases {
		if strings.EqualFold(alias, word) {
			return true
		}
	}
	return false
}

// AcceptsSMSC reports whether smscID is allowed to trigger this entry.
// An empty AcceptedSMSC list accepts everything (§4.H step 2).
func (e *Entry) AcceptsSMSC(smscID string) bool {
	if len(e.AcceptedSMSC) == 0 || smscID == "" {
		return true
	}
	for _, id := range e.AcceptedSMSC {
		if id == smscID {
			return true
		}
	}
	return false
}

// IsDefault reports whether this is the fallback "default" entry.
func (e *Entry) IsDefault() bool {
	return strings.EqualFold(e.Keyword, "default")
}
