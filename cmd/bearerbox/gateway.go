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

// Package main wires the bearerbox core together: the queues and
// sentinel gates of §4.A/§4.C, the SMSC manager (§4.D), the box
// connection managers (§4.E), the WDP router and its UDP driver
// (§4.F), the service dispatcher (§4.H), the lifecycle controller
// (§4.C), the control bus (§4.P), and the admin HTTP surface (§4.L/§4.Q).
// Gateway holds the wiring so it can be built and torn down from a
// test without touching the process's signal handling or os.Exit,
// mirroring the teacher's split between a thin main() and its
// CoreManager-equivalent.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/gorhill/cronexpr"

	"github.com/kannelgw/bearergw/adminhttp"
	"github.com/kannelgw/bearergw/boxc"
	"github.com/kannelgw/bearergw/controlbus"
	"github.com/kannelgw/bearergw/dispatch"
	"github.com/kannelgw/bearergw/gwconfig"
	"github.com/kannelgw/bearergw/gwcontext"
	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/lifecycle"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
	"github.com/kannelgw/bearergw/smsc"
	"github.com/kannelgw/bearergw/udpdriver"
	"github.com/kannelgw/bearergw/urltrans"
	"github.com/kannelgw/bearergw/wdprouter"
)

// Gateway is one running bearerbox core.
type Gateway struct {
	log        gwlog.T
	cfg        *gwconfig.Config
	configPath string

	ctx    *gwcontext.T
	cancel context.CancelFunc

	smscMgr    *smsc.Manager
	wdpRouter  *wdprouter.Router
	udpDriver  *udpdriver.Driver
	smsBoxes   *boxc.Manager
	wapBoxes   *boxc.Manager
	dispatcher *dispatch.Dispatcher

	smsLn net.Listener
	wapLn net.Listener

	incomingWDP *queue.Queue

	bus        *controlbus.Bus
	adminSrv   *http.Server
	cfgWatcher *fsnotify.Watcher

	cronStop chan struct{}

	shutdownRequested chan struct{}
}

// NewGateway builds, but does not start, the gateway wired from cfg.
// configPath is only used for the fsnotify config-change watch (§4.N);
// it may be empty, disabling that watch.
func NewGateway(log gwlog.T, cfg *gwconfig.Config, configPath string) *Gateway {
	return &Gateway{log: log, cfg: cfg, configPath: configPath}
}

// Start brings every component up: it compiles the translation table,
// builds the shared queues, starts the SMSC drivers, the box
// listeners, the WDP router and UDP driver, the dispatcher, the
// control bus, and the admin HTTP server, in the dependency order each
// needs its collaborators already running. opts customize the
// lifecycle controller's initial state (§6's -S/-I flags).
func (g *Gateway) Start(opts ...lifecycle.Option) error {
	table, err := urltrans.Compile(g.cfg.Raw)
	if err != nil {
		return fmt.Errorf("compiling translation table: %w", err)
	}

	queues := gwcontext.Queues{
		IncomingSMS: queue.New("incoming_sms", g.cfg.Core.QueueSoftBound),
		OutgoingSMS: queue.New("outgoing_sms", g.cfg.Core.QueueSoftBound),
		IncomingWDP: queue.New("incoming_wdp", g.cfg.Core.QueueSoftBound),
		OutgoingWDP: queue.New("outgoing_wdp", g.cfg.Core.QueueSoftBound),
		Suspended:   queue.NewGate(),
		Isolated:    queue.NewGate(),
	}

	cfgs, err := smscConfigs(g.cfg.Raw)
	if err != nil {
		return err
	}

	g.smscMgr = smsc.New(g.log, queues.OutgoingSMS, queues.IncomingSMS, queues.Suspended)

	g.udpDriver, err = g.bindUDP(queues.IncomingWDP, queues.Suspended, queues.Isolated)
	if err != nil {
		return fmt.Errorf("binding WDP socket %s: %w", g.cfg.Core.WDPAddr, err)
	}
	g.wdpRouter = wdprouter.New(g.log, queues.OutgoingWDP, g.udpDriver)

	g.smsBoxes = boxc.New(g.log, queues.IncomingSMS)
	g.wapBoxes = boxc.New(g.log, queues.IncomingWDP)
	if g.cfg.Core.HeartbeatFreq > 0 {
		g.smsBoxes.HeartbeatFreq = g.cfg.Core.HeartbeatFreq
		g.wapBoxes.HeartbeatFreq = g.cfg.Core.HeartbeatFreq
	}

	g.dispatcher = dispatch.New(g.log, table, queues.IncomingSMS, queues.OutgoingSMS, dispatch.Options{
		Workers:      g.cfg.Core.DispatcherWorkers,
		HTTPTimeout:  g.cfg.Core.HTTPTimeout,
		GlobalSender: g.cfg.Core.GlobalSender,
	})

	bus, err := controlbus.NewPublisher(g.log, controlbus.Addr)
	if err != nil {
		return fmt.Errorf("binding control bus: %w", err)
	}
	g.bus = bus

	g.shutdownRequested = make(chan struct{})
	publish := controlbus.PublishHook(bus)
	opts = append(opts, lifecycle.WithTransitionHook(func(previous, next lifecycle.State, at time.Time) {
		publish(previous, next, at)
		if next == lifecycle.Shutdown {
			close(g.shutdownRequested)
		}
	}))
	controller := lifecycle.New(g.log, queues.Suspended, queues.Isolated, g.smscMgr, g.wdpRouter, opts...)

	g.ctx = gwcontext.New(g.log, g.cfg, queues, controller, table)
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	if err := g.smscMgr.Start(cfgs, controller); err != nil {
		return fmt.Errorf("starting SMSC drivers: %w", err)
	}
	g.wdpRouter.Start(controller)
	g.udpDriver.Start(controller)
	g.dispatcher.Start(controller)

	g.smsLn, err = g.listenTCP(g.cfg.Core.SMSPort)
	if err != nil {
		return fmt.Errorf("binding SMS box listener: %w", err)
	}
	g.wapLn, err = g.listenTCP(g.cfg.Core.WAPPort)
	if err != nil {
		return fmt.Errorf("binding WAP box listener: %w", err)
	}
	go func() {
		if err := g.smsBoxes.Serve(ctx, g.smsLn); err != nil {
			g.log.Infof("boxc: sms box listener stopped: %v", err)
		}
	}()
	go func() {
		if err := g.wapBoxes.Serve(ctx, g.wapLn); err != nil {
			g.log.Infof("boxc: wap box listener stopped: %v", err)
		}
	}()

	g.incomingWDP = queues.IncomingWDP
	g.incomingWDP.AddProducer()
	controller.RegisterFlowThread()
	go func() {
		defer controller.DeregisterFlowThread()
		g.routeWAPToBoxes(queues.IncomingWDP)
	}()

	counter := queueCounter{queues: []*queue.Queue{
		queues.IncomingSMS, queues.OutgoingSMS, queues.IncomingWDP, queues.OutgoingWDP,
	}}
	admin := adminhttp.New(g.log, controller, g.smscMgr,
		mergedBoxStatus{sms: g.smsBoxes, wap: g.wapBoxes}, g.wdpRouter, counter, g.cfg.Core.AdminPassword)
	g.adminSrv = &http.Server{Addr: fmt.Sprintf(":%d", g.cfg.Core.AdminPort), Handler: admin.Mux()}
	go func() {
		if err := g.adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.log.Errorf("adminhttp: server stopped: %v", err)
		}
	}()

	if g.configPath != "" {
		if watcher, err := fsnotify.NewWatcher(); err == nil {
			if err := watcher.Add(g.configPath); err == nil {
				g.cfgWatcher = watcher
				go g.watchConfigFile(watcher)
			} else {
				watcher.Close()
				g.log.Warnf("gwconfig: could not watch %s for changes: %v", g.configPath, err)
			}
		}
	}

	if g.cfg.Core.LogReopenCron != "" {
		expr, err := cronexpr.Parse(g.cfg.Core.LogReopenCron)
		if err != nil {
			g.log.Warnf("gwconfig: log-reopen-cron %q is invalid, ignoring: %v", g.cfg.Core.LogReopenCron, err)
		} else {
			g.cronStop = make(chan struct{})
			go g.scheduledReopen(expr, g.cronStop)
		}
	}

	return nil
}

// bindUDP binds the WAP bearer's UDP socket, retrying transient bind
// failures (e.g. a just-restarted process racing the old socket's
// TIME_WAIT teardown) before giving up.
func (g *Gateway) bindUDP(incoming *queue.Queue, suspended, isolated *queue.Gate) (*udpdriver.Driver, error) {
	var driver *udpdriver.Driver
	op := func() error {
		d, err := udpdriver.Listen(g.log, g.cfg.Core.WDPAddr, incoming, suspended, isolated)
		if err != nil {
			return err
		}
		driver = d
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return driver, nil
}

// listenTCP binds a box listener with the same retry policy as bindUDP.
func (g *Gateway) listenTCP(port int) (net.Listener, error) {
	var ln net.Listener
	op := func() error {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return err
		}
		ln = l
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return ln, nil
}

// routeWAPToBoxes drains incoming_wdp and hands each datagram to the
// WAP-side box manager's Route: unlike incoming_sms, nothing in this
// binary implements in-process WAP content dispatch, so a connected
// wapbox is the only possible destination for inbound WAP traffic
// (§4.E's "inbound routing" rule applied to the WAP bearer).
func (g *Gateway) routeWAPToBoxes(incoming *queue.Queue) {
	for {
		msg, err := incoming.Consume()
		if err != nil {
			return // queue.EndOfStream
		}
		if msg.Kind != message.KindWDP {
			continue
		}
		if !g.wapBoxes.Route(msg, "") {
			g.log.Warnf("bearerbox: no wapbox connected, dropping inbound WAP datagram %d", msg.ID)
		}
	}
}

// watchConfigFile implements §4.N's "warn, never reload" policy: the
// config file is read once at startup; any later change is surfaced to
// the operator as a log warning rather than applied live.
func (g *Gateway) watchConfigFile(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				g.log.Warnf("gwconfig: %s changed on disk; restart bearerbox to apply it", event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			g.log.Warnf("gwconfig: watch error: %v", err)
		}
	}
}

// scheduledReopen fires Reopen on every cron tick of expr, implementing
// the optional log-reopen-cron setting (§4.M) as an alternative to
// waiting for an operator's SIGHUP.
func (g *Gateway) scheduledReopen(expr *cronexpr.Expression, stop chan struct{}) {
	for {
		next := expr.Next(time.Now())
		if next.IsZero() {
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			g.log.Infof("bearerbox: scheduled log reopen firing")
			g.reopen()
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// reopen rebuilds the seelog config from the current settings and
// hands it to the logger; wired to both SIGHUP (lifecycle.WatchSignals)
// and the optional cron schedule.
func (g *Gateway) reopen() {
	if err := g.log.Reopen(g.logConfig()); err != nil {
		g.log.Warnf("bearerbox: log reopen failed: %v", err)
	}
}

func (g *Gateway) logConfig() []byte {
	if g.cfg.Core.LogFile == "" {
		return gwlog.DefaultConfig()
	}
	return gwlog.FileConfig(g.cfg.Core.LogFile, g.cfg.Core.LogLevel)
}

// Controller returns the lifecycle state machine, for WatchSignals and
// the admin HTTP surface's owner to share.
func (g *Gateway) Controller() *lifecycle.Controller { return g.ctx.Controller() }

// Reopen exposes the log-reopen hook for lifecycle.WatchSignals.
func (g *Gateway) Reopen() { g.reopen() }

// ShutdownRequested closes once the controller first reaches SHUTDOWN,
// whether that was triggered by a signal (lifecycle.WatchSignals) or
// the admin /shutdown endpoint. Callers block on it before calling
// Stop, so Stop's teardown never races a gateway that is still serving
// traffic.
func (g *Gateway) ShutdownRequested() <-chan struct{} { return g.shutdownRequested }

// Stop tears every component down in reverse dependency order and
// blocks until every flow thread this Gateway registered has exited.
// Callers should wait on ShutdownRequested before calling Stop.
func (g *Gateway) Stop() {
	if g.cronStop != nil {
		close(g.cronStop)
	}
	if g.cfgWatcher != nil {
		g.cfgWatcher.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if g.adminSrv != nil {
		g.adminSrv.Shutdown(shutdownCtx)
	}

	if g.smsLn != nil {
		g.smsLn.Close()
	}
	if g.wapLn != nil {
		g.wapLn.Close()
	}
	if g.cancel != nil {
		g.cancel()
	}

	g.dispatcher.Shutdown()
	if g.incomingWDP != nil {
		g.incomingWDP.RemoveProducer()
	}

	g.ctx.Close() // blocks on controller.Wait(), then flushes/closes the logger

	if g.bus != nil {
		g.bus.Close()
	}
}
