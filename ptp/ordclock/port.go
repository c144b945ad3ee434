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

// Package ordclock implements the per-port Announce/Sync/Follow_Up/
// Delay_Req/Delay_Resp protocol engine of an IEEE 1588 PTPv2 ordinary
// clock: the foreign-master table, the two per-port timers, the five
// state-gated message processors, the event dispatcher, and the
// state-machine driver that arms/disarms timers around FSM transitions.
//
// The clock aggregator and transport are modeled as narrow interfaces and
// the FSM as a function value, so a caller can wire in whatever
// implementation fits its deployment; ordclock ships reasonable defaults
// (ServoClock, UDPTransport, DefaultFSM) built on the rest of this
// repository. The message codec (ptp.DecodePacket/ptp.Bytes) and the BMC
// comparator (bmc.Dscmp) are called directly and are not replaceable.
package ordclock

import (
	"fmt"
	"time"

	ptp "github.com/facebook/time/ptp/protocol"
	log "github.com/sirupsen/logrus"
)

// Port is the central aggregate: one per network interface this ordinary
// clock listens on.
type Port struct {
	Name         string
	PortIdentity ptp.PortIdentity
	Config       *PortConfig

	Clock     Clock
	Transport Transport
	FSM       FSM

	State ptp.PortState
	Stats ServiceStats

	foreignMasters map[ptp.PortIdentity]*ForeignClock
	foreignOrder   []ptp.PortIdentity // insertion order, index 0 = head

	best    *ForeignClock
	bestKey ptp.PortIdentity
	hasBest bool

	lastSync     *Message
	lastFollowUp *Message
	delayReq     *Message

	seqnum uint16

	announceTimer *oneShotTimer
	delayTimer    *oneShotTimer

	// now is overridden by tests; production ports always use time.Now.
	now func() time.Time
}

// NewPort builds a Port in state INITIALIZING. The caller must follow with
// a Dispatch(EventInitialize) before the port does anything useful: a
// fresh port is created in INITIALIZING and transitioned through
// initialization to LISTENING by the dispatcher.
func NewPort(name string, number uint16, cfg *PortConfig, clk Clock, transport Transport, fsm FSM) (*Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid port config: %w", err)
	}
	if fsm == nil {
		fsm = DefaultFSM
	}
	p := &Port{
		Name:           name,
		PortIdentity:   ptp.PortIdentity{ClockIdentity: clk.Identity(), PortNumber: number},
		Config:         cfg,
		Clock:          clk,
		Transport:      transport,
		FSM:            fsm,
		State:          ptp.PortStateInitializing,
		foreignMasters: make(map[ptp.PortIdentity]*ForeignClock),
		now:            time.Now,
	}
	p.announceTimer = newOneShotTimer()
	p.delayTimer = newOneShotTimer()
	return p, nil
}

// init performs port initialization: open the transport, arm the announce
// timer. On failure it unwinds whatever it already acquired.
func (p *Port) init() error {
	if err := p.Transport.Open(p.Config.Iface, p.Config.Timestamping, p.Config.DSCP); err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	p.announceTimer.arm(announceTimeout(p.Config))
	p.delayTimer.clear()
	return nil
}

// Close tears down the port's transport and disarms both timers.
func (p *Port) Close() error {
	p.announceTimer.clear()
	p.delayTimer.clear()
	if p.lastSync != nil {
		p.lastSync.Release()
		p.lastSync = nil
	}
	if p.lastFollowUp != nil {
		p.lastFollowUp.Release()
		p.lastFollowUp = nil
	}
	if p.delayReq != nil {
		p.delayReq.Release()
		p.delayReq = nil
	}
	for _, fc := range p.foreignMasters {
		fc.clear()
	}
	return p.Transport.Close()
}

// nextSeq returns seqnum then increments it, modulo 2^16, matching
// port_delay_request's "seqnum++" post-increment.
func (p *Port) nextSeq() uint16 {
	s := p.seqnum
	p.seqnum++
	return s
}

// announceTimeout is announceReceiptTimeout * 2^logAnnounceInterval.
func announceTimeout(cfg *PortConfig) time.Duration {
	return time.Duration(cfg.AnnounceReceiptTimeout) * ptp.LogInterval(cfg.LogAnnounceInterval).Duration()
}

// delayReqTimeout is 2^(logMinDelayReqInterval + 1).
func delayReqTimeout(cfg *PortConfig) time.Duration {
	logInterval := clampLogInterval(cfg.LogMinDelayReqInterval)
	return ptp.LogInterval(logInterval + 1).Duration()
}

// clampLogInterval bounds a log2 interval exponent adopted from a peer to a
// sane range before it's used to arm a timer.
func clampLogInterval(v int8) int8 {
	const (
		minLogInterval = -10
		maxLogInterval = 10
	)
	if v < minLogInterval {
		return minLogInterval
	}
	if v > maxLogInterval {
		return maxLogInterval
	}
	return v
}

// logf is a small wrapper so processors/dispatch can log consistently with
// the port's identity in every line, matching the logging style
// sptp/client functions use ("(%s) message").
func (p *Port) logf(format string, args ...interface{}) {
	log.Debugf("(%s) "+format, append([]interface{}{p.PortIdentity}, args...)...)
}
