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

package gwconfig

import "fmt"

// ConfigError is fatal at startup (§7): bearerbox refuses to start rather
// than run with a config it cannot make sense of.
type ConfigError struct {
	Group string
	Key   string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config: [%s] %s: %s", e.Group, e.Key, e.Msg)
	}
	return fmt.Sprintf("config: [%s]: %s", e.Group, e.Msg)
}
