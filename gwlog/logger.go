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

import (
	"strings"
	"sync"

	"github.com/cihub/seelog"
)

// seelogT adapts a seelog.LoggerInterface to T, prefixing every call with
// a context tag list (the WithContext chain).
type seelogT struct {
	mu      *sync.Mutex
	base    *seelog.LoggerInterface
	context []string
}

// New builds a T backed by a freshly parsed seelog config. On parse
// failure it falls back to DefaultConfig so a bad config file never
// prevents bearerbox from logging at all.
func New(seelogConfigXML []byte) T {
	logger, err := seelog.LoggerFromConfigAsBytes(seelogConfigXML)
	if err != nil {
		logger, _ = seelog.LoggerFromConfigAsBytes(DefaultConfig())
	}
	_ = seelog.ReplaceLogger(logger)
	return &seelogT{mu: &sync.Mutex{}, base: &logger}
}

// Reopen swaps the underlying seelog logger for one built from a new
// config without disturbing callers already holding a T (they share the
// *seelog.LoggerInterface pointer cell).
func (l *seelogT) Reopen(seelogConfigXML []byte) error {
	logger, err := seelog.LoggerFromConfigAsBytes(seelogConfigXML)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Flush()
	*l.base = logger
	return seelog.ReplaceLogger(logger)
}

func (l *seelogT) prefix(format string) string {
	if len(l.context) == 0 {
		return format
	}
	return "[" + strings.Join(l.context, "][") + "] " + format
}

func (l *seelogT) Tracef(format string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Tracef(l.prefix(format), params...)
}

func (l *seelogT) Debugf(format string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Debugf(l.prefix(format), params...)
}

func (l *seelogT) Infof(format string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Infof(l.prefix(format), params...)
}

func (l *seelogT) Warnf(format string, params ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (*l.base).Warnf(l.prefix(format), params...)
}

func (l *seelogT) Errorf(format string, params ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (*l.base).Errorf(l.prefix(format), params...)
}

func (l *seelogT) Criticalf(format string, params ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (*l.base).Criticalf(l.prefix(format), params...)
}

func (l *seelogT) Trace(v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Trace(l.withPrefix(v)...)
}

func (l *seelogT) Debug(v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Debug(l.withPrefix(v)...)
}

func (l *seelogT) Info(v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Info(l.withPrefix(v)...)
}

func (l *seelogT) Warn(v ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (*l.base).Warn(l.withPrefix(v)...)
}

func (l *seelogT) Error(v ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (*l.base).Error(l.withPrefix(v)...)
}

func (l *seelogT) Critical(v ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return (*l.base).Critical(l.withPrefix(v)...)
}

func (l *seelogT) withPrefix(v []interface{}) []interface{} {
	if len(l.context) == 0 {
		return v
	}
	tagged := make([]interface{}, 0, len(v)+1)
	tagged = append(tagged, "["+strings.Join(l.context, "][")+"]")
	return append(tagged, v...)
}

func (l *seelogT) WithContext(context ...string) T {
	merged := make([]string, 0, len(l.context)+len(context))
	merged = append(merged, l.context...)
	merged = append(merged, context...)
	return &seelogT{mu: l.mu, base: l.base, context: merged}
}

func (l *seelogT) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Flush()
}

func (l *seelogT) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.base).Flush()
	(*l.base).Close()
}
