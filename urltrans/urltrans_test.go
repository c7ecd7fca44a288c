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
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/ini.v1"
)

// TestEchoScenario covers §8 scenario S1: keyword "echo" with pattern
// "you said %s %s" against "echo hi there" expands to "you said hi
// there".
func TestEchoScenario(t *testing.T) {
	raw, err := ini.Load([]byte(`
[sms-service]
keyword = echo
type = TEXT
text = you said %s %s
max-messages = 1
`))
	assert.NoError(t, err)

	table, err := Compile(raw)
	assert.NoError(t, err)

	e := table.Find("echo", 2, "")
	assert.NotNil(t, e)
	assert.Equal(t, TypeText, e.Type)

	out, err := e.Expand(ExpandArgs{Keyword: "echo", Args: []string{"hi", "there"}})
	assert.NoError(t, err)
	assert.Equal(t, "you said hi there", out)
}

func TestFindFallsBackToDefault(t *testing.T) {
	raw, _ := ini.Load([]byte(`
[sms-service]
keyword = default
type = TEXT
text = Request failed

[sms-service.1]
keyword = echo
type = TEXT
text = you said %s
`))
	table, err := Compile(raw)
	assert.NoError(t, err)

	e := table.Find("unknown", 0, "")
	assert.NotNil(t, e)
	assert.True(t, e.IsDefault())
}

func TestAcceptedSMSCRestriction(t *testing.T) {
	raw, _ := ini.Load([]byte(`
[sms-service]
keyword = echo
type = TEXT
text = ok
accepted-smsc = smsc1;smsc2
`))
	table, err := Compile(raw)
	assert.NoError(t, err)

	assert.NotNil(t, table.Find("echo", 0, "smsc1"))
	assert.Nil(t, table.Default())
	// smsc3 not accepted, and there is no default entry to fall back to.
	assert.Nil(t, table.Find("echo", 0, "smsc3"))
}

func TestEncodeForURLIdempotentAndASCII(t *testing.T) {
	safe := "hello-world_1.2~3*4'5(6)7"
	assert.Equal(t, safe, EncodeForURL(safe))

	encoded := EncodeForURL("hello world/\xe2\x82\xac")
	for i := 0; i < len(encoded); i++ {
		assert.Less(t, encoded[i], byte(128))
	}
}

func TestStripLeadingDoubleZero(t *testing.T) {
	assert.Equal(t, "%2B358401234567", stripLeadingDoubleZero("00358401234567"))
	assert.Equal(t, "358401234567", stripLeadingDoubleZero("358401234567"))
}
