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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/ini.v1"
)

func TestSMSCConfigsSingle(t *testing.T) {
	raw, err := ini.Load([]byte(`
[core]
admin-port = 13000

[smsc]
smsc-id = loop1
smsc-type = loopback
host = 127.0.0.1
`))
	assert.NoError(t, err)

	cfgs, err := smscConfigs(raw)
	assert.NoError(t, err)
	assert.Len(t, cfgs, 1)
	assert.Equal(t, "loop1", cfgs[0].ID)
	assert.Equal(t, "loopback", cfgs[0].Type)
	assert.Equal(t, "127.0.0.1", cfgs[0].Settings["host"])
	assert.NotContains(t, cfgs[0].Settings, "smsc-id")
	assert.NotContains(t, cfgs[0].Settings, "smsc-type")
}

func TestSMSCConfigsRepeatedSections(t *testing.T) {
	raw, err := ini.Load([]byte(`
[smsc]
smsc-id = one
smsc-type = loopback

[smsc.1]
smsc-id = two
smsc-type = loopback

[smsc.2]
smsc-id = three
smsc-type = loopback
`))
	assert.NoError(t, err)

	cfgs, err := smscConfigs(raw)
	assert.NoError(t, err)
	assert.Len(t, cfgs, 3)

	var ids []string
	for _, c := range cfgs {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"one", "two", "three"}, ids)
}

func TestSMSCConfigsDefaultType(t *testing.T) {
	raw, err := ini.Load([]byte(`
[smsc]
smsc-id = default-typed
`))
	assert.NoError(t, err)

	cfgs, err := smscConfigs(raw)
	assert.NoError(t, err)
	assert.Len(t, cfgs, 1)
	assert.Equal(t, "loopback", cfgs[0].Type)
}

func TestSMSCConfigsMissingID(t *testing.T) {
	raw, err := ini.Load([]byte(`
[smsc]
smsc-type = loopback
`))
	assert.NoError(t, err)

	_, err = smscConfigs(raw)
	assert.Error(t, err)
}

func TestSMSCConfigsIgnoresUnrelatedSections(t *testing.T) {
	raw, err := ini.Load([]byte(`
[core]
admin-port = 13000

[sms-service]
keyword = echo
`))
	assert.NoError(t, err)

	cfgs, err := smscConfigs(raw)
	assert.NoError(t, err)
	assert.Empty(t, cfgs)
}
