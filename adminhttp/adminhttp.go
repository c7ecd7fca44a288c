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

// Package adminhttp implements the HTTP admin surface (§4.L): the
// /status, /suspend, /isolate, /resume, and /shutdown endpoints that
// drive the lifecycle controller and assemble a merged status document
// out of every component's own status fragment (§4.Q).
package adminhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/lifecycle"
)

// StatusProvider is implemented by smsc.Manager, boxc.Manager, and
// wdprouter.Router; each contributes one status fragment under its own
// top-level key in the merged document (§4.Q).
type StatusProvider interface {
	Status(format string) (*gabs.Container, error)
}

// Counter reports the cumulative number of messages processed since
// startup, for the /status "messages_per_second" field (§4.Q). The
// caller typically sums queue.Queue.Produced() across the named queues.
type Counter interface {
	Total() int64
}

// Server is the admin HTTP surface. It holds no listener of its own -
// ListenAndServe or a caller-supplied http.Server wraps Server.Mux.
type Server struct {
	log        gwlog.T
	controller *lifecycle.Controller
	smsc       StatusProvider
	boxes      StatusProvider
	wdp        StatusProvider
	counter    Counter
	password   string
	startedAt  time.Time

	mux *http.ServeMux
}

// New builds a Server and wires its routes. password, if non-empty,
// is required as the `password` query parameter on every request
// (Kannel's own admin-password convention); empty disables the check.
// counter may be nil, in which case messages_per_second always reports
// zero.
func New(log gwlog.T, controller *lifecycle.Controller, smsc, boxes, wdp StatusProvider, counter Counter, password string) *Server {
	s := &Server{
		log:        log,
		controller: controller,
		smsc:       smsc,
		boxes:      boxes,
		wdp:        wdp,
		counter:    counter,
		password:   password,
		startedAt:  time.Now(),
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

// Mux returns the server's handler, suitable for http.Server.Handler or
// httptest.NewServer.
func (s *Server) Mux() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/status.html", s.handleStatus)
	s.mux.HandleFunc("/status.wml", s.handleStatus)
	s.mux.HandleFunc("/status.xml", s.handleStatus)
	s.mux.HandleFunc("/status.txt", s.handleStatus)
	s.mux.HandleFunc("/status.json", s.handleStatus)
	s.mux.HandleFunc("/status/stream", s.handleStatusStream)

	s.mux.HandleFunc("/suspend", s.handleTransition(s.controller.Suspend))
	s.mux.HandleFunc("/isolate", s.handleTransition(s.controller.Isolate))
	s.mux.HandleFunc("/resume", s.handleTransition(s.controller.Resume))
	s.mux.HandleFunc("/shutdown", s.handleTransition(s.controller.Shutdown))
}

// checkPassword reports whether the request carries the configured
// admin password, writing a 403 itself (with the requester unauthorized
// to even learn which transitions exist) when it does not match.
func (s *Server) checkPassword(w http.ResponseWriter, r *http.Request) bool {
	if s.password == "" {
		return true
	}
	if r.URL.Query().Get("password") == s.password {
		return true
	}
	http.Error(w, "Denied", http.StatusForbidden)
	return false
}

// handleTransition wraps a lifecycle edge as a GET handler: 200 with a
// human-readable body on success, 403 if the edge isn't allowed from
// the current state (§4.L).
func (s *Server) handleTransition(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkPassword(w, r) {
			return
		}
		if err := op(); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(s.controller.State().String() + "\n"))
	}
}

// handleStatus assembles the merged status document and renders it
// according to the request path's suffix (§4.L/§4.Q).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.checkPassword(w, r) {
		return
	}

	format := formatFromPath(r.URL.Path)
	doc, err := s.buildStatus(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, contentType := render(doc, format)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// buildStatus assembles the merged status document shared by the
// plain-request handler and the streaming websocket push (§4.Q).
func (s *Server) buildStatus(format string) (*gabs.Container, error) {
	doc := gabs.New()
	uptime := time.Since(s.startedAt)
	if _, err := doc.Set(s.controller.State().String(), "state"); err != nil {
		return nil, err
	}
	if _, err := doc.Set(int64(uptime.Seconds()), "uptime_seconds"); err != nil {
		return nil, err
	}
	var total int64
	if s.counter != nil {
		total = s.counter.Total()
	}
	if _, err := doc.Set(throughput(total, uptime.Seconds()), "messages_per_second"); err != nil {
		return nil, err
	}

	proc, err := processFragment()
	if err != nil {
		return nil, err
	}
	if _, err := doc.SetP(proc.Data(), "process"); err != nil {
		return nil, err
	}

	for key, provider := range map[string]StatusProvider{"smsc": s.smsc, "boxes": s.boxes, "wdp": s.wdp} {
		if provider == nil {
			continue
		}
		frag, err := provider.Status(format)
		if err != nil {
			return nil, err
		}
		if _, err := doc.SetP(frag.Data(), key); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func formatFromPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return "txt"
}

// throughput is the heartbeat/status rate calculation (§9): the
// original C tool (`mtbatch.c`'s read_messages_from_bearerbox) divides a
// running total of processed messages by elapsed seconds, with no check
// for a zero denominator, which the instant status is polled before a
// full second has elapsed turns into a divide-by-zero (C floating point
// just yields Inf/NaN; the Go port has no such free pass). Guarding
// elapsed == 0 is this port's one deliberate fix (§9's explicit redesign
// flag), not a literal translation of the numerator/denominator split.
func throughput(total int64, elapsedSeconds float64) float64 {
	if elapsedSeconds == 0 {
		return 0
	}
	return float64(total) / elapsedSeconds
}

// render serializes doc according to format. json/html/wml/xml/txt are
// all accepted; anything else falls back to txt.
func render(doc *gabs.Container, format string) (string, string) {
	switch format {
	case "json":
		return doc.StringIndent("", "  "), "application/json"
	case "html":
		return "<html><body><pre>" + doc.StringIndent("", "  ") + "</pre></body></html>", "text/html"
	case "wml":
		return "<?xml version=\"1.0\"?><wml><card><p>" + doc.StringIndent("", "  ") + "</p></card></wml>", "text/vnd.wap.wml"
	case "xml":
		return "<status>" + doc.StringIndent("", "  ") + "</status>", "text/xml"
	default:
		return doc.StringIndent("", "  "), "text/plain"
	}
}
