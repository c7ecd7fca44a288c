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

// Package udpdriver is the production wdprouter.UDPDriver bearerbox
// binds when it owns the WAP bearer itself rather than tunneling WDP
// traffic through an SMSC: one real UDP socket per configured
// interface, per §6's "bind a UDP socket per configured interface".
package udpdriver

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Jeffail/gabs"

	"github.com/kannelgw/bearergw/gwlog"
	"github.com/kannelgw/bearergw/message"
	"github.com/kannelgw/bearergw/queue"
)

type flowThreads interface {
	RegisterFlowThread()
	DeregisterFlowThread()
}

// Driver implements wdprouter.UDPDriver over a bound *net.UDPConn.
// Deliver is called by wdprouter.Router's routing loop; the receive
// side is this type's own flow thread, started separately since the
// router only owns the outbound direction (§4.F).
type Driver struct {
	log  gwlog.T
	conn *net.UDPConn

	incoming  *queue.Queue
	suspended *queue.Gate
	isolated  *queue.Gate

	wg sync.WaitGroup

	received int64
	sent     int64
}

// Listen binds addr ("host:port", or ":port" for every interface) and
// returns an unstarted Driver. incoming is the shared incoming_wdp
// queue the receive loop produces into; suspended/isolated are the
// sentinel gates it blocks on before each read so a suspended or
// isolated gateway stops ingesting WAP traffic without closing the
// socket.
func Listen(log gwlog.T, addr string, incoming *queue.Queue, suspended, isolated *queue.Gate) (*Driver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Driver{log: log, conn: conn, incoming: incoming, suspended: suspended, isolated: isolated}, nil
}

// Start launches the receive loop, registering it as a flow thread so
// lifecycle.Controller.Wait blocks on it draining.
func (d *Driver) Start(ft flowThreads) {
	d.incoming.AddProducer()
	ft.RegisterFlowThread()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer ft.DeregisterFlowThread()
		d.receiveLoop()
	}()
}

func (d *Driver) receiveLoop() {
	buf := make([]byte, 65535)
	for {
		if d.suspended != nil {
			d.suspended.WaitOpen()
		}
		if d.isolated != nil {
			d.isolated.WaitOpen()
		}

		n, raddr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			return // socket closed by Shutdown
		}
		atomic.AddInt64(&d.received, 1)

		dg := message.WDP{
			SrcAddr:  raddr.IP.String(),
			SrcPort:  raddr.Port,
			UserData: append([]byte(nil), buf[:n]...),
		}
		if err := d.incoming.Produce(message.NewWDP(dg)); err != nil {
			d.log.Warnf("udpdriver: incoming_wdp closed, dropping datagram from %s", raddr)
		}
	}
}

// Deliver writes an outbound datagram to its destination address.
func (d *Driver) Deliver(dg *message.WDP) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(dg.DstAddr, strconv.Itoa(dg.DstPort)))
	if err != nil {
		return err
	}
	if _, err := d.conn.WriteToUDP(dg.UserData, addr); err != nil {
		return err
	}
	atomic.AddInt64(&d.sent, 1)
	return nil
}

// Shutdown closes the socket, unblocking the receive loop, removes its
// producer hold on incoming_wdp, and waits for the loop to exit.
func (d *Driver) Shutdown() error {
	err := d.conn.Close()
	d.incoming.RemoveProducer()
	d.wg.Wait()
	return err
}

// Status reports the bound address and lifetime datagram counters for
// the admin `/status` surface (§4.Q).
func (d *Driver) Status(format string) (*gabs.Container, error) {
	out := gabs.New()
	if _, err := out.Set(d.conn.LocalAddr().String(), "listen_addr"); err != nil {
		return nil, err
	}
	if _, err := out.Set(atomic.LoadInt64(&d.received), "received"); err != nil {
		return nil, err
	}
	if _, err := out.Set(atomic.LoadInt64(&d.sent), "sent"); err != nil {
		return nil, err
	}
	return out, nil
}
