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

package gwlog

// DefaultConfig returns the seelog XML config used when the operator has
// not pointed bearerbox at a log-file path (stderr at info level).
func DefaultConfig() []byte {
	return []byte(`
<seelog type="sync" minlevel="info">
	<outputs formatid="main">
		<console/>
	</outputs>
	<formats>
		<format id="main" format="%Date %Time [%LEVEL] %Msg%n"/>
	</formats>
</seelog>
`)
}

// FileConfig returns a seelog XML config that writes to path at the given
// minimum level, rolling at 100MB. Used to build the config reopened on
// SIGHUP or by the cron-scheduled reopen.
func FileConfig(path string, minLevel string) []byte {
	return []byte(`
<seelog type="sync" minlevel="` + minLevel + `">
	<outputs formatid="main">
		<rollingfile type="size" filename="` + path + `" maxsize="104857600" maxrolls="5"/>
	</outputs>
	<formats>
		<format id="main" format="%Date %Time [%LEVEL] %Msg%n"/>
	</formats>
</seelog>
`)
}
