/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ordclock

import (
	"fmt"
	"net"
	"time"

	"github.com/facebook/time/dscp"
	"github.com/facebook/time/timestamp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Transport is the send/receive collaborator spec.md §6 describes. It owns
// the network sockets and hardware timestamp capture; the core only ever
// asks it to open, send, receive, and close.
type Transport interface {
	// Open binds the port's event and general sockets for iface using the
	// requested timestamping mode.
	Open(iface string, tsMode timestamp.Timestamp, dscpValue int) error
	// Close releases both sockets.
	Close() error
	// Send writes msg on the event channel (eventChannel=true, requesting
	// hardware egress timestamp capture) or the general channel, returning
	// the captured timestamp for event-channel sends.
	Send(eventChannel bool, dst net.IP, msg []byte) (hwts time.Time, err error)
	// Recv reads the next datagram from the named channel (eventChannel=true
	// for the event socket, false for the general socket). Both sockets are
	// non-blocking; Recv is only ever called after an external multiplexer
	// has reported that specific fd ready, per spec.md §5's "no blocking
	// calls inside processors beyond non-blocking send/recv".
	Recv(eventChannel bool) (msg []byte, hwts time.Time, err error)
	// EventFD and GeneralFD expose the raw descriptors so a dispatcher can
	// map the fd index an external multiplexer reports ready back to the
	// channel it belongs to.
	EventFD() int
	GeneralFD() int
}

// UDPTransport is the default Transport, binding the traditional PTP event
// (319) and general (320) UDP ports the way ptp4u/server/worker.go's
// listen() does, generalized to a per-port receive loop instead of a
// send-only worker.
type UDPTransport struct {
	iface     string
	eventFD   int
	generalFD int
}

// NewUDPTransport constructs an unopened UDPTransport.
func NewUDPTransport() *UDPTransport {
	return &UDPTransport{eventFD: -1, generalFD: -1}
}

func bindSocket(domain int, port int, iface string, ts timestamp.Timestamp, dscpValue int) (int, error) {
	fd, err := unix.Socket(domain, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return -1, fmt.Errorf("creating socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return -1, fmt.Errorf("setting SO_REUSEPORT: %w", err)
	}
	// Non-blocking: unlike ptp4u's per-socket blocking worker goroutines
	// (ptp4u/server/server.go's SetNonblock(fd, false)), this core is driven
	// by a single cooperative dispatcher multiplexing many ports' fds, so a
	// Recv must never be able to stall it.
	if err := unix.SetNonblock(fd, true); err != nil {
		return -1, fmt.Errorf("setting socket non-blocking: %w", err)
	}
	sockAddr := timestamp.IPToSockaddr(net.IPv6zero, port)
	if domain == unix.AF_INET {
		sockAddr = timestamp.IPToSockaddr(net.IPv4zero, port)
	}
	if err := unix.Bind(fd, sockAddr); err != nil {
		return -1, fmt.Errorf("binding socket to port %d: %w", port, err)
	}
	if err := dscp.Enable(fd, net.IPv6zero, dscpValue); err != nil {
		return -1, fmt.Errorf("setting DSCP: %w", err)
	}
	netIface, err := net.InterfaceByName(iface)
	if err != nil {
		return -1, fmt.Errorf("looking up interface %q: %w", iface, err)
	}
	if err := timestamp.EnableTimestamps(ts, fd, netIface); err != nil {
		return -1, fmt.Errorf("enabling timestamps: %w", err)
	}
	return fd, nil
}

// Open binds the event socket to PortEvent (319) and the general socket to
// PortGeneral (320), mirroring protocol.PortEvent/protocol.PortGeneral.
func (t *UDPTransport) Open(iface string, tsMode timestamp.Timestamp, dscpValue int) error {
	const (
		eventPort   = 319
		generalPort = 320
	)
	eventFD, err := bindSocket(unix.AF_INET6, eventPort, iface, tsMode, dscpValue)
	if err != nil {
		return fmt.Errorf("opening event socket: %w", err)
	}
	generalFD, err := bindSocket(unix.AF_INET6, generalPort, iface, tsMode, dscpValue)
	if err != nil {
		unix.Close(eventFD)
		return fmt.Errorf("opening general socket: %w", err)
	}
	t.iface = iface
	t.eventFD = eventFD
	t.generalFD = generalFD
	return nil
}

// Close releases both sockets, unwinding whichever were opened.
func (t *UDPTransport) Close() error {
	var err error
	if t.eventFD >= 0 {
		if cerr := unix.Close(t.eventFD); cerr != nil {
			err = cerr
		}
		t.eventFD = -1
	}
	if t.generalFD >= 0 {
		if cerr := unix.Close(t.generalFD); cerr != nil {
			err = cerr
		}
		t.generalFD = -1
	}
	return err
}

// Send writes msg to dst on the requested channel. Event-channel sends
// (Delay_Req) read back the hardware egress timestamp the way
// sptp/client captures TX timestamps; general-channel sends (Delay_Resp)
// are not hardware-timestamped per spec.md §4.4.
func (t *UDPTransport) Send(eventChannel bool, dst net.IP, msg []byte) (time.Time, error) {
	fd := t.generalFD
	if eventChannel {
		fd = t.eventFD
	}
	sa := timestamp.IPToSockaddr(dst, 320)
	if eventChannel {
		sa = timestamp.IPToSockaddr(dst, 319)
	}
	if err := unix.Sendto(fd, msg, 0, sa); err != nil {
		return time.Time{}, fmt.Errorf("sendto: %w", err)
	}
	if !eventChannel {
		return time.Time{}, nil
	}
	hwts, _, err := timestamp.ReadTXtimestamp(fd)
	if err != nil {
		log.Warningf("failed to read TX timestamp: %v", err)
		return time.Now(), nil
	}
	return hwts, nil
}

// Recv reads the next datagram from the requested channel only. The
// dispatcher (spec.md §4.7) polls both fds via an external multiplexer and
// calls Recv on whichever one it reported ready -- never the other -- so
// this never blocks the cooperative dispatch loop on a socket with nothing
// queued.
func (t *UDPTransport) Recv(eventChannel bool) ([]byte, time.Time, error) {
	fd := t.generalFD
	if eventChannel {
		fd = t.eventFD
	}
	buf, _, hwts, err := timestamp.ReadPacketWithRXTimestamp(fd)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("recv: %w", err)
	}
	return buf, hwts, nil
}

// EventFD returns the bound event-channel descriptor, or -1 if unopened.
func (t *UDPTransport) EventFD() int { return t.eventFD }

// GeneralFD returns the bound general-channel descriptor, or -1 if unopened.
func (t *UDPTransport) GeneralFD() int { return t.generalFD }
