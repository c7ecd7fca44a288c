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
	"strings"

	"gopkg.in/ini.v1"

	"github.com/kannelgw/bearergw/gwconfig"
	"github.com/kannelgw/bearergw/smsc"
)

// smscConfigs compiles every `group = smsc` section into a smsc.Config,
// following the same repeated-section-name convention urltrans.Compile
// uses for `sms-service`/`sms-service.N`: a deployment with more than
// one SMSC lists `[smsc]`, `[smsc.1]`, `[smsc.2]`, ...
func smscConfigs(raw *ini.File) ([]smsc.Config, error) {
	var cfgs []smsc.Config
	for _, sec := range raw.Sections() {
		if sec.Name() != "smsc" && !strings.HasPrefix(sec.Name(), "smsc.") {
			continue
		}

		id := sec.Key("smsc-id").String()
		typ := sec.Key("smsc-type").MustString("loopback")
		if id == "" {
			return nil, &gwconfig.ConfigError{Group: sec.Name(), Key: "smsc-id", Msg: "must be set"}
		}

		settings := make(map[string]string)
		for _, k := range sec.Keys() {
			if k.Name() == "smsc-id" || k.Name() == "smsc-type" {
				continue
			}
			settings[k.Name()] = k.String()
		}

		cfgs = append(cfgs, smsc.Config{ID: id, Type: typ, Settings: settings})
	}
	return cfgs, nil
}
