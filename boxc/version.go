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

package boxc

import (
	"github.com/coreos/go-semver/semver"

	"github.com/kannelgw/bearergw/gwlog"
)

// ProtocolVersion is this bearerbox's own box wire-protocol version,
// compared against the version the connecting smsbox/wapbox declares
// in its admin(identify) frame. Bearerbox does not send it to the box.
const ProtocolVersion = "1.3.0"

// checkVersion logs a warning when peerVersion's major component
// differs from ours; it never rejects the connection; a minor/patch
// mismatch is silent since the wire format does not change across
// those. An empty peerVersion (an older box that predates this field)
// is not an error either.
func checkVersion(log gwlog.T, boxcID, peerVersion string) {
	if peerVersion == "" {
		return
	}
	ours, err := semver.NewVersion(ProtocolVersion)
	if err != nil {
		return
	}
	theirs, err := semver.NewVersion(peerVersion)
	if err != nil {
		log.Warnf("boxc: %s declared an unparseable protocol version %q", boxcID, peerVersion)
		return
	}
	if theirs.Major != ours.Major {
		log.Warnf("boxc: %s protocol version %s differs from our %s in major version", boxcID, theirs, ours)
	}
}
