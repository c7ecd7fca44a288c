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

// Package gwlog is the logging facade used by every bearergw package.
// It should be imported once from cmd/bearerbox and passed down through
// gwcontext.T; packages never call seelog directly.
package gwlog

// T is the logger contract every bearergw package codes against. It
// matches seelog.LoggerInterface closely enough that a T is always backed
// by one, but keeps call sites free of the seelog import.
type T interface {
	Tracef(format string, params ...interface{})
	Debugf(format string, params ...interface{})
	Infof(format string, params ...interface{})
	Warnf(format string, params ...interface{}) error
	Errorf(format string, params ...interface{}) error
	Criticalf(format string, params ...interface{}) error

	Trace(v ...interface{})
	Debug(v ...interface{})
	Info(v ...interface{})
	Warn(v ...interface{}) error
	Error(v ...interface{}) error
	Critical(v ...interface{}) error

	// WithContext returns a logger that prefixes every message with the
	// given tags, e.g. Log().WithContext("smsc", "cimd2").
	WithContext(context ...string) T

	// Flush blocks until all buffered log entries are written out.
	Flush()

	// Close flushes and releases the underlying seelog receivers.
	Close()

	// Reopen swaps in a freshly parsed seelog config, used on SIGHUP and
	// by the optional cron-scheduled reopen.
	Reopen(seelogConfigXML []byte) error
}
