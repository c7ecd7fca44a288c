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

// Package gwconfig loads the bearerbox configuration file. Kannel's config
// format is already a sequence of `group = <name>` blocks followed by
// `key = value` lines separated by blank lines, which is exactly what
// gopkg.in/ini.v1 models as named sections, so we load the file straight
// through ini.v1 rather than hand-rolling a parser.
package gwconfig

import (
	"time"

	"gopkg.in/ini.v1"
)

const (
	DefaultQueueSoftBound    = 1000
	DefaultDispatcherWorkers = 20
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultHeartbeatFreq     = 30 * time.Second
	DefaultSMSPort           = 13001
	DefaultWAPPort           = 13002
	DefaultAdminPort         = 13000
	DefaultWDPAddr           = ":7200"
)

// Core holds the single `group = core` section's settings.
type Core struct {
	AdminPort         int
	SMSPort           int
	WAPPort           int
	DispatcherWorkers int
	HTTPTimeout       time.Duration
	HeartbeatFreq     time.Duration
	QueueSoftBound    int64
	LogFile           string
	LogLevel          string
	LogReopenCron     string
	GlobalSender      string
	AdminPassword     string
	WDPAddr           string
}

// Config is the fully loaded configuration file: the core settings plus
// the raw ini document, which urltrans consumes directly to build the
// translation table (each `sms-service`/`sendsms-user` group becomes one
// entry).
type Config struct {
	Core Core
	Raw  *ini.File
}

// Load parses path and validates the core group. Any structural problem
// is a ConfigError, which is fatal at startup per §7.
func Load(path string) (*Config, error) {
	raw, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, &ConfigError{Group: "core", Msg: "cannot read config file: " + err.Error()}
	}
	return FromINI(raw)
}

// FromINI builds a Config from an already-parsed ini.File, so tests can
// construct one in-memory with ini.Load([]byte(...)) without a temp file.
func FromINI(raw *ini.File) (*Config, error) {
	cfg := &Config{Raw: raw}
	sec := raw.Section("core")

	cfg.Core.AdminPort = sec.Key("admin-port").MustInt(DefaultAdminPort)
	cfg.Core.SMSPort = sec.Key("smsbox-port").MustInt(DefaultSMSPort)
	cfg.Core.WAPPort = sec.Key("wapbox-port").MustInt(DefaultWAPPort)
	cfg.Core.DispatcherWorkers = sec.Key("dispatcher-threads").MustInt(DefaultDispatcherWorkers)
	cfg.Core.HTTPTimeout = sec.Key("http-timeout").MustDuration(DefaultHTTPTimeout)
	cfg.Core.HeartbeatFreq = sec.Key("heartbeat-freq").MustDuration(DefaultHeartbeatFreq)
	cfg.Core.QueueSoftBound = sec.Key("queue-soft-bound").MustInt64(DefaultQueueSoftBound)
	cfg.Core.LogFile = sec.Key("log-file").String()
	cfg.Core.LogLevel = sec.Key("log-level").MustString("info")
	cfg.Core.LogReopenCron = sec.Key("log-reopen-cron").String()
	cfg.Core.GlobalSender = sec.Key("global-sender").String()
	cfg.Core.AdminPassword = sec.Key("admin-password").String()
	cfg.Core.WDPAddr = sec.Key("wdp-addr").MustString(DefaultWDPAddr)

	if cfg.Core.DispatcherWorkers <= 0 {
		return nil, &ConfigError{Group: "core", Key: "dispatcher-threads", Msg: "must be positive"}
	}
	if cfg.Core.SMSPort == cfg.Core.WAPPort {
		return nil, &ConfigError{Group: "core", Key: "smsbox-port/wapbox-port", Msg: "must differ"}
	}

	return cfg, nil
}
