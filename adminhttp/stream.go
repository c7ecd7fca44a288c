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
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// StreamInterval is the push period for /status/stream.
const StreamInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the admin surface is trusted-network-only (password-gated, not
	// browser-facing by design), so the default same-origin check would
	// only get in an operator's way.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStatusStream upgrades to a websocket and pushes the merged
// status document as JSON every StreamInterval, until the peer
// disconnects or a push fails.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	if !s.checkPassword(w, r) {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("adminhttp: status stream upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	for {
		doc, err := s.buildStatus("json")
		if err != nil {
			s.log.Warnf("adminhttp: status stream could not assemble snapshot: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(doc.StringIndent("", ""))); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
