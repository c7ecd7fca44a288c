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
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Table is the append-only, read-only-after-load list of translations
// (§3). Lookup is intentionally O(N): the entry count is small (a
// handful to a few hundred services) and correctness/readability of a
// linear scan over concurrent-map bookkeeping was the source's own
// tradeoff.
type Table struct {
	entries []*Entry
}

// NewTable returns an empty table; entries are added with Add during
// config load and never removed afterwards.
func NewTable() *Table {
	return &Table{}
}

// Add appends an entry. Not safe to call once the table is in use by the
// dispatcher (load-time only, per §3's "append-only" contract).
func (t *Table) Add(e *Entry) {
	t.entries = append(t.entries, e)
}

// Entries returns the full entry list for iteration (e.g. by the admin
// status report); callers must not mutate the returned entries.
func (t *Table) Entries() []*Entry {
	return t.entries
}

// Default returns the fallback entry whose keyword is "default", or nil.
func (t *Table) Default() *Entry {
	for _, e := range t.entries {
		if e.IsDefault() {
			return e
		}
	}
	return nil
}

// Find implements the match rule in §4.H step 2: a non-SENDSMS entry
// whose keyword case-insensitively matches word, with an argument count
// either equal to argc or, when the entry accepts a catch-all argument,
// at least argc; additionally, when smscID is non-empty and the entry
// restricts accepted_smsc, smscID must be listed. Falls back to the
// "default" entry on no match.
func (t *Table) Find(word string, argc int, smscID string) *Entry {
	for _, e := range t.entries {
		if e.Type == TypeSendSMS || e.IsDefault() {
			continue
		}
		if !keywordMatches(e, word) {
			continue
		}
		count, catchall := e.Args()
		if argc != count && !(catchall && argc >= count) {
			continue
		}
		if !e.AcceptsSMSC(smscID) {
			continue
		}
		return e
	}
	return t.Default()
}

func keywordMatches(e *Entry, word string) bool {
	if strings.EqualFold(e.Keyword, word) {
		return true
	}
	return e.MatchesAlias(word)
}

// FindSendSMSUser returns the SENDSMS-type entry for username, or nil.
func (t *Table) FindSendSMSUser(username string) *Entry {
	for _, e := range t.entries {
		if e.Type == TypeSendSMS && e.Username == username {
			return e
		}
	}
	return nil
}

// Compile builds a Table from the `sms-service` and `sendsms-user`
// groups of an ini document (§4.N). Each group becomes exactly one
// Entry; the ini document itself is produced by gwconfig from the
// bearerbox config file.
func Compile(raw *ini.File) (*Table, error) {
	table := NewTable()

	for _, sec := range raw.Sections() {
		switch {
		case sec.Name() == "sms-service" || strings.HasPrefix(sec.Name(), "sms-service."):
			e, err := compileServiceEntry(sec)
			if err != nil {
				return nil, err
			}
			table.Add(e)
		case sec.Name() == "sendsms-user" || strings.HasPrefix(sec.Name(), "sendsms-user."):
			e, err := compileSendSMSUser(sec)
			if err != nil {
				return nil, err
			}
			table.Add(e)
		}
	}
	return table, nil
}

func compileServiceEntry(sec *ini.Section) (*Entry, error) {
	e := &Entry{
		Keyword:         sec.Key("keyword").String(),
		Pattern:         sec.Key("get-url").String(),
		Prefix:          sec.Key("prefix").String(),
		Suffix:          sec.Key("suffix").String(),
		FakedSender:     sec.Key("faked-sender").String(),
		MaxMessages:     sec.Key("max-messages").MustInt(1),
		Concatenation:   sec.Key("concatenation").MustBool(false),
		SplitChars:      sec.Key("split-chars").String(),
		SplitSuffix:     sec.Key("split-suffix").String(),
		Header:          sec.Key("header").String(),
		Footer:          sec.Key("footer").String(),
		OmitEmpty:       sec.Key("omit-empty").MustBool(false),
		ForcedSMSC:      sec.Key("forced-smsc").String(),
		DefaultSMSC:     sec.Key("default-smsc").String(),
		AssumePlainText: sec.Key("assume-plain-text").MustBool(false),
	}
	if e.Keyword == "" {
		return nil, fmt.Errorf("urltrans: sms-service group %q missing keyword", sec.Name())
	}
	if aliases := sec.Key("aliases").String(); aliases != "" {
		e.Aliases = strings.Split(aliases, ";")
	}
	if accepted := sec.Key("accepted-smsc").String(); accepted != "" {
		e.AcceptedSMSC = strings.Split(accepted, ";")
	}
	if allow := sec.Key("allow-ip").String(); allow != "" {
		e.AllowIP = strings.Split(allow, ";")
	}
	if deny := sec.Key("deny-ip").String(); deny != "" {
		e.DenyIP = strings.Split(deny, ";")
	}

	switch strings.ToLower(sec.Key("type").MustString("url")) {
	case "text":
		e.Type = TypeText
		e.Pattern = sec.Key("text").String()
	case "file":
		e.Type = TypeFile
		e.Pattern = sec.Key("file").String()
	default:
		e.Type = TypeURL
	}

	segs, err := CompilePattern(e.Pattern)
	if err != nil {
		return nil, err
	}
	e.Segments = segs
	e.argCount, e.hasCatchallArg = countArgs(segs)
	return e, nil
}

func compileSendSMSUser(sec *ini.Section) (*Entry, error) {
	e := &Entry{
		Type:     TypeSendSMS,
		Username: sec.Key("username").String(),
		Password: sec.Key("password").String(),
	}
	if e.Username == "" {
		return nil, fmt.Errorf("urltrans: sendsms-user group %q missing username", sec.Name())
	}
	if accepted := sec.Key("accepted-smsc").String(); accepted != "" {
		e.AcceptedSMSC = strings.Split(accepted, ";")
	}
	if forced := sec.Key("forced-smsc").String(); forced != "" {
		e.ForcedSMSC = forced
	}
	if maxMsgs := sec.Key("max-messages").String(); maxMsgs != "" {
		n, err := strconv.Atoi(maxMsgs)
		if err != nil {
			return nil, fmt.Errorf("urltrans: sendsms-user %q: bad max-messages: %w", e.Username, err)
		}
		e.MaxMessages = n
	} else {
		e.MaxMessages = 1
	}
	return e, nil
}
