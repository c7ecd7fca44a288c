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

package adminhttp

import (
	"os"

	"github.com/Jeffail/gabs"
	gops "github.com/mitchellh/go-ps"
)

// processFragment reports bearerbox's own OS-level process info (pid,
// executable name) for the merged /status document's "process" key -
// the admin surface's answer to "which binary, which pid is this".
func processFragment() (*gabs.Container, error) {
	out := gabs.New()
	pid := os.Getpid()
	if _, err := out.Set(pid, "pid"); err != nil {
		return nil, err
	}
	if proc, err := gops.FindProcess(pid); err == nil && proc != nil {
		if _, err := out.Set(proc.Executable(), "executable"); err != nil {
			return nil, err
		}
	}
	return out, nil
}
