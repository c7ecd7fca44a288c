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
	"fmt"
	"sync"
)

// TestLogger is a lightweight T used by package tests: it records every
// formatted message instead of writing to seelog, so tests can assert on
// logged content without standing up a real logger.
type TestLogger struct {
	mu       sync.Mutex
	Messages []string
	context  []string
}

// NewTestLogger returns a T that records messages in memory.
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

func (l *TestLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.context) > 0 {
		msg = fmt.Sprintf("[%v] %s", l.context, msg)
	}
	l.Messages = append(l.Messages, "["+level+"] "+msg)
}

func (l *TestLogger) Tracef(format string, params ...interface{}) {
	l.record("TRACE", fmt.Sprintf(format, params...))
}
func (l *TestLogger) Debugf(format string, params ...interface{}) {
	l.record("DEBUG", fmt.Sprintf(format, params...))
}
func (l *TestLogger) Infof(format string, params ...interface{}) {
	l.record("INFO", fmt.Sprintf(format, params...))
}
func (l *TestLogger) Warnf(format string, params ...interface{}) error {
	l.record("WARN", fmt.Sprintf(format, params...))
	return nil
}
func (l *TestLogger) Errorf(format string, params ...interface{}) error {
	l.record("ERROR", fmt.Sprintf(format, params...))
	return nil
}
func (l *TestLogger) Criticalf(format string, params ...interface{}) error {
	l.record("CRITICAL", fmt.Sprintf(format, params...))
	return nil
}
func (l *TestLogger) Trace(v ...interface{})   { l.record("TRACE", fmt.Sprint(v...)) }
func (l *TestLogger) Debug(v ...interface{})   { l.record("DEBUG", fmt.Sprint(v...)) }
func (l *TestLogger) Info(v ...interface{})    { l.record("INFO", fmt.Sprint(v...)) }
func (l *TestLogger) Warn(v ...interface{}) error {
	l.record("WARN", fmt.Sprint(v...))
	return nil
}
func (l *TestLogger) Error(v ...interface{}) error {
	l.record("ERROR", fmt.Sprint(v...))
	return nil
}
func (l *TestLogger) Critical(v ...interface{}) error {
	l.record("CRITICAL", fmt.Sprint(v...))
	return nil
}

func (l *TestLogger) WithContext(context ...string) T {
	merged := make([]string, 0, len(l.context)+len(context))
	merged = append(merged, l.context...)
	merged = append(merged, context...)
	return &TestLogger{context: merged}
}

func (l *TestLogger) Flush()                               {}
func (l *TestLogger) Close()                                {}
func (l *TestLogger) Reopen(seelogConfigXML []byte) error { return nil }
