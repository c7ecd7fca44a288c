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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kannelgw/bearergw/gwconfig"
	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/lifecycle"
)

// CLI surface (§6): bearerbox [-v N] [-S|--suspended] [-I|--isolated] [config-file]
func main() {
	verbose := flag.Int("v", 0, "log verbosity (0-6, higher is more verbose; unused beyond info/debug selection)")
	suspended := flag.Bool("S", false, "start in SUSPENDED state")
	flag.BoolVar(suspended, "suspended", false, "start in SUSPENDED state")
	isolated := flag.Bool("I", false, "start in ISOLATED state")
	flag.BoolVar(isolated, "isolated", false, "start in ISOLATED state")
	flag.Parse()

	configPath := "bearerbox.conf"
	if flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}

	cfg, err := gwconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bearerbox: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Core.LogLevel
	if *verbose > 0 {
		level = "debug"
	}
	log := gwlog.New(logConfigXML(cfg, level))
	log.Infof("bearerbox starting, config=%s", configPath)

	var opts []lifecycle.Option
	if *suspended {
		opts = append(opts, lifecycle.StartSuspended())
	}
	if *isolated {
		opts = append(opts, lifecycle.StartIsolated())
	}

	gw := NewGateway(log, cfg, configPath)
	if err := gw.Start(opts...); err != nil {
		log.Errorf("bearerbox: could not start: %v", err)
		log.Flush()
		log.Close()
		os.Exit(1)
	}

	lifecycle.WatchSignals(gw.Controller(), gw.Reopen)

	<-gw.ShutdownRequested()
	gw.Stop()
}

func logConfigXML(cfg *gwconfig.Config, level string) []byte {
	if cfg.Core.LogFile == "" {
		return gwlog.DefaultConfig()
	}
	return gwlog.FileConfig(cfg.Core.LogFile, level)
}
